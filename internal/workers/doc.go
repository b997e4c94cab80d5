// Package workers sizes worker pools for containerized environments.
//
// Go 1.19+ sets GOMAXPROCS from container CPU limits, while
// runtime.NumCPU() still reports the host's core count. Pools sized here
// use GOMAXPROCS so a pod limited to 2 cores never spawns 64 workers.
package workers
