// Package resilience holds the retry policy used by the stream engine's
// resubscribing operators.
//
// A RetryConfig decides whether a failure is worth another attempt and how
// long to wait before it:
//
//	cfg := resilience.DefaultRetryConfig()
//	if cfg.ShouldRetry(attempt, err) {
//	    wait := cfg.Backoff(attempt)
//	    ...
//	}
package resilience
