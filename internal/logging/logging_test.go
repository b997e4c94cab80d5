package logging

import (
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  LogLevel
	}{
		{
			name:  "debug",
			value: "debug",
			want:  LevelDebug,
		},
		{
			name:  "info",
			value: "info",
			want:  LevelInfo,
		},
		{
			name:  "warn",
			value: "warn",
			want:  LevelWarn,
		},
		{
			name:  "warning alias",
			value: "warning",
			want:  LevelWarn,
		},
		{
			name:  "error",
			value: "error",
			want:  LevelError,
		},
		{
			name:  "case insensitive",
			value: "DEBUG",
			want:  LevelDebug,
		},
		{
			name:  "unknown defaults to info",
			value: "verbose",
			want:  LevelInfo,
		},
		{
			name:  "empty defaults to info",
			value: "",
			want:  LevelInfo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.value); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestSetLevel(t *testing.T) {
	original := GetLevel()
	defer SetLevel(original)

	SetLevel(LevelError)
	if got := GetLevel(); got != LevelError {
		t.Errorf("GetLevel() after SetLevel(LevelError) = %v, want %v", got, LevelError)
	}

	if IsDebugEnabled() {
		t.Error("IsDebugEnabled() = true at error level")
	}

	SetLevel(LevelDebug)
	if !IsDebugEnabled() {
		t.Error("IsDebugEnabled() = false at debug level")
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LogLevel(99), "unknown(99)"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("LogLevel(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}
