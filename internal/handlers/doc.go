// Package handlers implements the HTTP API for the product media service.
//
// Endpoints:
//   - POST   /api/products/{id}/media        upload media for an entity
//   - GET    /api/products/{id}/media        fetch an entity's media record
//   - DELETE /api/products/{id}/media/{kind} remove an entity's media
//   - GET    /api/media                      list all media records
//   - GET    /api/uploads/status             in-flight upload state
//   - POST   /api/rederive                   batch re-derivation of missing previews
//   - GET    /health, /livez, /readyz        health and probe endpoints
//   - GET    /api/version                    build information
//
// Responses are JSON. Display URLs in media responses carry a
// cache-busting version parameter; stored URLs do not.
package handlers
