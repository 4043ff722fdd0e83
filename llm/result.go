// Package llm routes natural-language generation across multiple backend
// providers with pacing and cross-provider fallback.
package llm

// Result is the outcome of one text generation request. Generation failures
// are data, not errors: a failed Result carries a diagnostic in ErrText and
// callers branch on Failed() instead of unwrapping an error chain. Nothing in
// this package returns a Go error to the caller of Complete.
type Result struct {
	// Provider is the backend that produced this result.
	Provider string
	// Text is the generated text. Empty when the request failed.
	Text string
	// ErrText is the failure diagnostic. Empty on success.
	ErrText string
}

// Failed reports whether the generation request failed.
func (r Result) Failed() bool {
	return r.ErrText != ""
}

// TextResult builds a successful result.
func TextResult(provider, text string) Result {
	return Result{Provider: provider, Text: text}
}

// ErrorResult builds a failed result.
func ErrorResult(provider, errText string) Result {
	return Result{Provider: provider, ErrText: errText}
}
