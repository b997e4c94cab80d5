package workers

import (
	"os"
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	os.Unsetenv("REDERIVE_WORKERS")
	defer os.Unsetenv("REDERIVE_WORKERS")

	availableCPU := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		maxExpect  int
	}{
		{"CPU-bound (1.0x)", 1.0, 0, availableCPU},
		{"I/O-bound (2.0x)", 2.0, 0, availableCPU * 2},
		{"Limit below calculated", 2.0, 2, 2},
		{"Very low multiplier", 0.1, 0, availableCPU},
		{"Zero multiplier", 0.0, 0, availableCPU},
		{"Negative multiplier", -1.0, 0, availableCPU},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)

			if got < 1 {
				t.Errorf("Count(%v, %d) = %d, should never be less than 1", tt.multiplier, tt.limit, got)
			}
			if got > tt.maxExpect {
				t.Errorf("Count(%v, %d) = %d, expected <= %d", tt.multiplier, tt.limit, got, tt.maxExpect)
			}
		})
	}
}

func TestCountWithEnvOverride(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		limit    int
		expected int
	}{
		{"Valid override", "8", 0, 8},
		{"Override capped by limit", "20", 10, 10},
		{"Override below limit", "5", 10, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Setenv("REDERIVE_WORKERS", tt.envValue)
			defer os.Unsetenv("REDERIVE_WORKERS")

			if got := Count(1.0, tt.limit); got != tt.expected {
				t.Errorf("Count(1.0, %d) with REDERIVE_WORKERS=%s = %d, want %d",
					tt.limit, tt.envValue, got, tt.expected)
			}
		})
	}
}

func TestCountInvalidOverride(t *testing.T) {
	for _, v := range []string{"invalid", "0", "-5"} {
		os.Setenv("REDERIVE_WORKERS", v)
		if got := Count(1.0, 0); got < 1 {
			t.Errorf("Count with REDERIVE_WORKERS=%s = %d, want >= 1", v, got)
		}
	}
	os.Unsetenv("REDERIVE_WORKERS")
}

func TestForMixed(t *testing.T) {
	os.Unsetenv("REDERIVE_WORKERS")
	defer os.Unsetenv("REDERIVE_WORKERS")

	got := ForMixed(4)
	if got < 1 || got > 4 {
		t.Errorf("ForMixed(4) = %d, want between 1 and 4", got)
	}
}
