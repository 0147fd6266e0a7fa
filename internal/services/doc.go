// Package services implements the business logic layer between the HTTP
// handlers and the counting engine.
//
// # Architecture
//
// Services follow these principles:
//
//	1. Interface-driven collaborators for testability
//	2. Context propagation for cancellation and tracing
//	3. Dependency injection through constructors
//
// # Services
//
// AnalysisService runs one analysis end to end: input ingestion through
// the loader, the bounded engine run, report views, metrics, spans and
// lifecycle events on the websocket hub.
//
// HealthService answers liveness, readiness and version probes.
//
// # Error Handling
//
// Services return typed application errors from internal/errors so the
// transport layer can map them to problem details:
//
//	if len(in.Values) > s.cfg.MaxSamples {
//	    return nil, apperrors.NewAppValidationError("too many samples")
//	}
package services
