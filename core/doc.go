// Package core defines the domain model for offense triage along with the
// shared runtime primitives (worker pool, circuit breaker) used across the
// service.
//
// The central types are Offense (a correlated cluster of security events
// awaiting triage) and Analysis (the complete triage outcome for one
// offense). Supporting types carry reputation findings and retrieved
// similar cases between pipeline stages.
package core
