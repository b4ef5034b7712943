// Package database provides the worker's persistence gateway connection.
//
// It wraps database/sql over SQLite (github.com/mattn/go-sqlite3) with:
//
//   - WAL mode and busy-timeout pragmas for concurrent handler access
//   - Embedded schema migrations (see the migrations package)
//   - Health checks and clean shutdown
//
// The worker shares its schema with the CRUD backend: devices and zones are
// read (and device active flags updated), while events, evidences and
// measurements are created here. Each repository operation is a short-lived,
// independently committed unit - no transaction spans handler boundaries.
package database
