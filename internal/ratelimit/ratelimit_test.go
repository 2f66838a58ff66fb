package ratelimit

import (
	"testing"
	"time"
)

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		burst    int
		key      string
		calls    int
		wantPass int
	}{
		{
			name:     "burst allows initial requests",
			rps:      1,
			burst:    3,
			key:      "10.0.0.2",
			calls:    3,
			wantPass: 3,
		},
		{
			name:     "exceeding burst blocks",
			rps:      1,
			burst:    2,
			key:      "10.0.0.2",
			calls:    5,
			wantPass: 2,
		},
		{
			name:     "zero burst still admits one",
			rps:      1,
			burst:    0,
			key:      "10.0.0.2",
			calls:    3,
			wantPass: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New(tt.rps, tt.burst)
			defer rl.Stop()

			passed := 0
			for i := 0; i < tt.calls; i++ {
				if rl.Allow(tt.key) {
					passed++
				}
			}

			if passed != tt.wantPass {
				t.Errorf("Allow() passed %d, want %d", passed, tt.wantPass)
			}
		})
	}
}

func TestKeyedRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := NewPer(1, time.Minute)
	defer rl.Stop()

	if !rl.Allow("a") {
		t.Fatal("first request for a should pass")
	}
	if rl.Allow("a") {
		t.Error("second request for a should be limited")
	}
	if !rl.Allow("b") {
		t.Error("first request for b should pass")
	}
}

func TestKeyedRateLimiter_PruneDropsIdleKeys(t *testing.T) {
	rl := NewPer(10, time.Minute)
	defer rl.Stop()

	current := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return current }

	rl.Allow("old")
	current = current.Add(20 * time.Minute)
	rl.Allow("fresh")

	rl.prune(10 * time.Minute)

	if got := rl.Len(); got != 1 {
		t.Fatalf("Len() = %d after prune, want 1", got)
	}
}

func TestParseRate(t *testing.T) {
	tests := []struct {
		in       string
		count    int
		interval time.Duration
		wantErr  bool
	}{
		{in: "10/min", count: 10, interval: time.Minute},
		{in: " 5 / s ", count: 5, interval: time.Second},
		{in: "100/hour", count: 100, interval: time.Hour},
		{in: "3/30s", count: 3, interval: 30 * time.Second},
		{in: "10", wantErr: true},
		{in: "0/min", wantErr: true},
		{in: "x/min", wantErr: true},
		{in: "10/fortnight", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			count, interval, err := ParseRate(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseRate(%q) succeeded, want error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRate(%q): %v", tt.in, err)
			}
			if count != tt.count || interval != tt.interval {
				t.Errorf("ParseRate(%q) = %d, %v; want %d, %v", tt.in, count, interval, tt.count, tt.interval)
			}
		})
	}
}
