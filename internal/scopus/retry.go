package scopus

import "net/http"

// RetryPolicy bounds the retry loop for a single page request. A request is
// reissued while the response status satisfies Retryable, up to MaxAttempts
// total requests; exhausting the budget fails the whole fetch operation.
type RetryPolicy struct {
	MaxAttempts int
	Retryable   func(statusCode int) bool
}

// DefaultRetryPolicy retries on the server-side transient statuses Scopus
// emits under load (503, 504), up to 10 consecutive attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 10,
		Retryable:   IsTransientStatus,
	}
}

// IsTransientStatus reports whether a status code signals a transient
// server-side condition worth retrying.
func IsTransientStatus(code int) bool {
	return code == http.StatusServiceUnavailable || code == http.StatusGatewayTimeout
}
