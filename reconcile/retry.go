package reconcile

import "time"

// RetryPolicy decides how many extra validation attempts a pending
// authorization gets and how long to wait between them. Attempt numbers
// are zero based: attempt 0 is the first re-try after the initial failure.
type RetryPolicy interface {
	Limit() int
	NextDelay(attempt int) time.Duration
}

// FixedDelayRetryPolicy waits the same amount of time before every
// re-attempt.
type FixedDelayRetryPolicy struct {
	Delay    time.Duration
	Attempts int
}

func (p FixedDelayRetryPolicy) Limit() int {
	if p.Attempts < 0 {
		return 0
	}
	return p.Attempts
}

func (p FixedDelayRetryPolicy) NextDelay(int) time.Duration {
	if p.Delay < 0 {
		return 0
	}
	return p.Delay
}

// ExponentialRetryPolicy doubles the base delay on each attempt, capped
// at Max when Max is set.
type ExponentialRetryPolicy struct {
	Base     time.Duration
	Max      time.Duration
	Attempts int
}

func (p ExponentialRetryPolicy) Limit() int {
	if p.Attempts < 0 {
		return 0
	}
	return p.Attempts
}

func (p ExponentialRetryPolicy) NextDelay(attempt int) time.Duration {
	if p.Base <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}
	delay := p.Base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if p.Max > 0 && delay >= p.Max {
			return p.Max
		}
	}
	if p.Max > 0 && delay > p.Max {
		return p.Max
	}
	return delay
}
