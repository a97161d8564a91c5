package llm

import "errors"

// Generation failures carry a distinguishable cause so the pipeline can
// surface a human-readable explanation without inspecting transport
// details. None are retried by the pipeline itself.
var (
	ErrUnauthorized = errors.New(
		"invalid API key: check your configuration and make sure the LLM API key is correct")
	ErrRateLimited = errors.New(
		"rate limit exceeded on the LLM provider: please wait a moment and try again")
	ErrServerError = errors.New(
		"LLM provider server error: please try again in a moment")
	ErrTimeout = errors.New(
		"the analysis request timed out: the model may be under heavy load, please try again in a moment")
	ErrConnection = errors.New(
		"could not connect to the LLM provider: please check your network connection")
	ErrMalformedResponse = errors.New(
		"unexpected response format from the LLM provider")
)

// Retryable reports whether an error is transient enough for the
// transport-level retry loop. Auth and rate-limit failures are final.
func Retryable(err error) bool {
	return errors.Is(err, ErrServerError) || errors.Is(err, ErrConnection)
}
