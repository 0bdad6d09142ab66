// Package services contains the core application logic: knowledge-base
// construction (collect, chunk, embed, index, persist), question answering
// with citations, and session management. Services depend only on ports;
// adapters are injected at wiring time.
package services
