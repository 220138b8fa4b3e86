package pipeline

import (
	"testing"
	"time"

	"story-cinema-pipeline/internal/ai"
)

func TestBackoffForRateLimitGrowsLinearly(t *testing.T) {
	base := 60 * time.Second
	for attempt := 1; attempt <= 3; attempt++ {
		wait, sleep := backoffFor(ai.KindRateLimited, attempt, 3, base)
		if want := time.Duration(attempt) * base; wait != want {
			t.Errorf("attempt %d: wait = %v, want %v", attempt, wait, want)
		}
		if !sleep {
			t.Errorf("attempt %d: rate-limit backoff must always sleep", attempt)
		}
	}
}

func TestBackoffForOtherErrorsIsFlat(t *testing.T) {
	base := 60 * time.Second
	for _, kind := range []ai.ErrorKind{ai.KindTransient, ai.KindEmptyResponse} {
		wait, sleep := backoffFor(kind, 1, 3, base)
		if wait != base || !sleep {
			t.Errorf("%v attempt 1: (%v, %v), want (%v, true)", kind, wait, sleep, base)
		}
		wait, sleep = backoffFor(kind, 2, 3, base)
		if wait != base || !sleep {
			t.Errorf("%v attempt 2: (%v, %v), want (%v, true)", kind, wait, sleep, base)
		}
		// No retry follows the final attempt, so no sleep either.
		if _, sleep = backoffFor(kind, 3, 3, base); sleep {
			t.Errorf("%v final attempt: must not sleep", kind)
		}
	}
}
