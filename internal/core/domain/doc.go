// Package domain contains the core business entities and rules for repochat.
// It has no dependencies on adapters or external services; everything here is
// plain data plus the invariants that govern it.
package domain
