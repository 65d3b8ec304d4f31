// Package server hosts the Fiber diagnostics service started by `swforge serve`.
// It keeps the latest successful compilation in a SnapshotStore and exposes it
// under /-/ so operators can inspect strategies, cache names and deprecation
// notices without reading the generated script. Routes live in server/routes
// and receive explicit dependencies.
package server
