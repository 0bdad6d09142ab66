// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): providers, storage, and the document collector.
package driven
