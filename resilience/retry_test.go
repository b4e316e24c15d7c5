package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errFlaky = errors.New("flaky")

func retryFlaky(err error) bool { return errors.Is(err, errFlaky) }

func TestNewRetry_Defaults(t *testing.T) {
	r := NewRetry(RetryConfig{})
	cfg := r.Config()

	if cfg.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.MaxAttempts)
	}
	if cfg.InitialDelay != 50*time.Millisecond {
		t.Errorf("InitialDelay = %v, want 50ms", cfg.InitialDelay)
	}
	if cfg.MaxDelay != 2*time.Second {
		t.Errorf("MaxDelay = %v, want 2s", cfg.MaxDelay)
	}
	if cfg.RetryIf(errFlaky) {
		t.Error("default RetryIf should never retry")
	}
}

func TestRetry_Execute(t *testing.T) {
	tests := []struct {
		name         string
		failures     int
		err          error
		wantAttempts int
		wantErr      error
	}{
		{"success first attempt", 0, nil, 1, nil},
		{"success after retries", 2, errFlaky, 3, nil},
		{"exhausted", 5, errFlaky, 3, ErrMaxRetriesExceeded},
		{"non retryable", 5, errors.New("permanent"), 1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRetry(RetryConfig{
				MaxAttempts:  3,
				InitialDelay: time.Millisecond,
				RetryIf:      retryFlaky,
			})

			attempts := 0
			err := r.Execute(context.Background(), func(context.Context) error {
				attempts++
				if attempts <= tt.failures {
					return tt.err
				}
				return nil
			})

			if attempts != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", attempts, tt.wantAttempts)
			}
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("err = %v, want %v", err, tt.wantErr)
				}
			case tt.failures > 0 && tt.wantAttempts == 1:
				if err == nil {
					t.Error("expected non-retryable error to be returned")
				}
			default:
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}
		})
	}
}

func TestRetry_ExhaustedWrapsLastError(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, RetryIf: retryFlaky})

	err := r.Execute(context.Background(), func(context.Context) error { return errFlaky })
	if !errors.Is(err, errFlaky) {
		t.Errorf("err = %v, want wrapped %v", err, errFlaky)
	}
}

func TestRetry_ContextCancelledDuringWait(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour, MaxDelay: time.Hour, RetryIf: retryFlaky})

	ctx, cancel := context.WithCancel(context.Background())
	var attempts int
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := r.Execute(ctx, func(context.Context) error {
		attempts++
		return errFlaky
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetry_OnRetryCallback(t *testing.T) {
	var delays []time.Duration
	r := NewRetry(RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Second,
		RetryIf:      retryFlaky,
		OnRetry: func(_ int, _ error, d time.Duration) {
			delays = append(delays, d)
		},
	})

	_ = r.Execute(context.Background(), func(context.Context) error { return errFlaky })

	if len(delays) != 2 {
		t.Fatalf("OnRetry called %d times, want 2", len(delays))
	}
	if delays[0] != time.Millisecond || delays[1] != 2*time.Millisecond {
		t.Errorf("delays = %v, want [1ms 2ms]", delays)
	}
}

func TestRetry_DelayCappedAtMax(t *testing.T) {
	r := NewRetry(RetryConfig{InitialDelay: time.Second, MaxDelay: 3 * time.Second})

	if got := r.delay(10); got != 3*time.Second {
		t.Errorf("delay(10) = %v, want 3s", got)
	}
}
