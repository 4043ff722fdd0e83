package llm

import "context"

// Generator turns a prompt into natural-language text. Implementations never
// return a Go error; failures are reported inside the Result.
type Generator interface {
	Complete(ctx context.Context, prompt string) Result
}

// Provider is one text generation backend. Providers return plain Go errors;
// the Router converts them into failed Results at the boundary.
type Provider interface {
	// Name identifies the provider in results, logs, and metrics.
	Name() string

	// Complete generates text for the prompt. The context bounds the call.
	Complete(ctx context.Context, prompt string) (string, error)
}

// systemPrompt frames every request; kept identical across providers so
// routing does not change the register of the output.
const systemPrompt = "You are a cybersecurity assistant supporting a Level-1 SOC analyst."
