package market

import (
	"errors"
	"testing"
	"time"
)

func TestBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	b := NewFeedBreaker(FeedBreakerConfig{Enabled: true, MaxConsecutiveFailures: 3, Cooldown: time.Hour})

	feedErr := errors.New("connection refused")
	for i := 0; i < 2; i++ {
		b.RecordFailure(feedErr)
		if err := b.Allow(); err != nil {
			t.Fatalf("breaker tripped early after %d failures: %v", i+1, err)
		}
	}

	b.RecordFailure(feedErr)
	if b.State() != BreakerOpen {
		t.Fatalf("expected open after 3 failures, got %s", b.State())
	}
	if err := b.Allow(); !errors.Is(err, ErrFeedDown) {
		t.Errorf("open breaker must refuse with ErrFeedDown, got %v", err)
	}
}

func TestBreakerSuccessResetsFailureRun(t *testing.T) {
	b := NewFeedBreaker(FeedBreakerConfig{Enabled: true, MaxConsecutiveFailures: 3, Cooldown: time.Hour})

	b.RecordFailure(errors.New("timeout"))
	b.RecordFailure(errors.New("timeout"))
	b.RecordSuccess()
	b.RecordFailure(errors.New("timeout"))
	b.RecordFailure(errors.New("timeout"))

	if b.State() != BreakerClosed {
		t.Errorf("interleaved success must reset the run, got %s", b.State())
	}
}

func TestBreakerRecoversThroughProbe(t *testing.T) {
	b := NewFeedBreaker(FeedBreakerConfig{Enabled: true, MaxConsecutiveFailures: 1, Cooldown: time.Millisecond})

	b.RecordFailure(errors.New("down"))
	if b.State() != BreakerOpen {
		t.Fatalf("expected open, got %s", b.State())
	}

	time.Sleep(5 * time.Millisecond)
	if err := b.Allow(); err != nil {
		t.Fatalf("cooldown elapsed, probe should be admitted: %v", err)
	}
	if b.State() != BreakerHalfOpen {
		t.Fatalf("expected half-open during probe, got %s", b.State())
	}
	// A second request while the probe is in flight is refused.
	if err := b.Allow(); err == nil {
		t.Error("only one probe may be in flight")
	}

	b.RecordSuccess()
	if b.State() != BreakerClosed {
		t.Errorf("successful probe should close the breaker, got %s", b.State())
	}
	if err := b.Allow(); err != nil {
		t.Errorf("closed breaker must admit requests: %v", err)
	}
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	b := NewFeedBreaker(FeedBreakerConfig{Enabled: true, MaxConsecutiveFailures: 1, Cooldown: time.Millisecond})

	b.RecordFailure(errors.New("down"))
	time.Sleep(5 * time.Millisecond)
	if err := b.Allow(); err != nil {
		t.Fatalf("probe should be admitted: %v", err)
	}
	b.RecordFailure(errors.New("still down"))
	if b.State() != BreakerOpen {
		t.Errorf("failed probe must reopen the breaker, got %s", b.State())
	}
}

func TestBreakerDisabledPassesEverything(t *testing.T) {
	b := NewFeedBreaker(FeedBreakerConfig{Enabled: false})
	for i := 0; i < 20; i++ {
		b.RecordFailure(errors.New("down"))
	}
	if err := b.Allow(); err != nil {
		t.Errorf("disabled breaker must never refuse: %v", err)
	}
}
