package health

import (
	"context"
	"errors"
	"testing"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusUnhealthy, "unhealthy"},
		{Status(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.status.String(); got != tt.want {
				t.Errorf("Status.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatus_Worse(t *testing.T) {
	tests := []struct {
		a, b, want Status
	}{
		{StatusHealthy, StatusHealthy, StatusHealthy},
		{StatusHealthy, StatusDegraded, StatusDegraded},
		{StatusUnhealthy, StatusDegraded, StatusUnhealthy},
		{StatusDegraded, StatusHealthy, StatusDegraded},
	}
	for _, tt := range tests {
		if got := tt.a.Worse(tt.b); got != tt.want {
			t.Errorf("%v.Worse(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestResultConstructors(t *testing.T) {
	boom := errors.New("boom")

	if r := Healthy("ok"); r.Status != StatusHealthy || r.Message != "ok" {
		t.Errorf("Healthy() = %+v", r)
	}
	if r := Degraded("slow"); r.Status != StatusDegraded || r.Message != "slow" {
		t.Errorf("Degraded() = %+v", r)
	}
	r := Unhealthy("down", boom)
	if r.Status != StatusUnhealthy || !errors.Is(r.Error, boom) {
		t.Errorf("Unhealthy() = %+v", r)
	}

	r = r.WithDetails(map[string]any{"k": 1})
	if r.Details["k"] != 1 {
		t.Errorf("Details = %v", r.Details)
	}
}

func TestCheckerFunc(t *testing.T) {
	c := NewCheckerFunc("disk", func(ctx context.Context) Result {
		return Degraded("meh")
	})
	if c.Name() != "disk" {
		t.Errorf("Name() = %v, want disk", c.Name())
	}
	if got := c.Check(context.Background()); got.Status != StatusDegraded {
		t.Errorf("Check().Status = %v, want degraded", got.Status)
	}
}
