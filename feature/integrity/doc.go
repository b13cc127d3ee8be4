// Package integrity provides health checks for the media reconciler's
// supporting infrastructure.
//
// # Checks Provided
//
//   - Storage: Checks that the fixture archive bucket exists and counts the archives in it.
//   - Database: Validates that the known-media table has the columns searches read.
//   - Upstream: Pings the search API with a trivial query and reports latency.
//
// Components that are not configured report a "disabled" status.
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs all checks.
//   - GET /integrity/storage : Runs storage check (supports ?fix=true).
//   - GET /integrity/database : Runs database schema check.
//   - GET /integrity/upstream : Pings the search API.
package integrity
