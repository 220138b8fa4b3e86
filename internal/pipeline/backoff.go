package pipeline

import (
	"time"

	"story-cinema-pipeline/internal/ai"
)

// backoffFor maps a failed attempt to the pause before the next one.
//
// Rate limits back off linearly (base, 2*base, 3*base) and always sleep,
// even after the final attempt: the quota window should be clear if the
// operator resumes right away. Every other failure waits a flat base delay,
// skipped after the final attempt since no retry follows.
func backoffFor(kind ai.ErrorKind, attempt, maxAttempts int, base time.Duration) (time.Duration, bool) {
	if kind == ai.KindRateLimited {
		return time.Duration(attempt) * base, true
	}
	return base, attempt < maxAttempts
}
