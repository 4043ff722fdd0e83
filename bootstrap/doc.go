// Package bootstrap wires the triage service together: logger, configuration,
// stores, reputation providers, the text generation router, the case memory,
// and the HTTP API. The cmd package builds on top of it for both the server
// and the one-shot CLI modes.
package bootstrap
