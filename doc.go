// Package migsql provides the data model for tracking named, dependency-linked
// raw SQL items (functions, types, triggers, indexes) across schema
// snapshots: item keys, SQL payloads and their equality, and the project
// configuration.
//
// The dependency graph lives in package graph, change detection in package
// detect and the operations it emits in package operation.
package migsql
