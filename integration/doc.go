//go:build integration

// Package integration runs the save flow against real object stores.
//
// These tests require Docker. They start an OCI registry and a MinIO server
// with testcontainers. Run with: go test -tags=integration ./integration/...
package integration
