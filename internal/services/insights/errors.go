package insights

import (
	"strings"
	"time"
)

// IsRateLimitError reports whether the generator failure looks like a rate
// limit response from the API.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "429") ||
		strings.Contains(s, "rate limit") ||
		strings.Contains(s, "too many requests")
}

// IsQuotaError reports whether the failure is quota exhaustion, which will
// not clear on a short retry.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "insufficient_quota") ||
		strings.Contains(s, "quota") ||
		strings.Contains(s, "billing")
}

// RetryDelay picks a requeue delay for a failed generation based on the
// error class and attempt number.
func RetryDelay(err error, attempt int) time.Duration {
	if attempt > 10 {
		attempt = 10
	}
	if attempt < 0 {
		attempt = 0
	}
	shift := uint(attempt)

	if IsQuotaError(err) {
		delay := time.Hour * time.Duration(1<<shift)
		if delay > 24*time.Hour {
			delay = 24 * time.Hour
		}
		return delay
	}

	if IsRateLimitError(err) {
		delay := 60 * time.Second * time.Duration(1<<shift)
		if delay > 15*time.Minute {
			delay = 15 * time.Minute
		}
		return delay
	}

	delay := 5 * time.Second * time.Duration(1<<shift)
	if delay > 5*time.Minute {
		delay = 5 * time.Minute
	}
	return delay
}
