// Package records persists the durable media record for each product
// entity: which kind of media it carries, the URL of the original upload,
// and the URL of its derived asset when one exists.
package records
