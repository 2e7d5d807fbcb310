package logx

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestConfigureAppliesGlobalLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(prev)

	Configure("warn")
	if got := zerolog.GlobalLevel(); got != zerolog.WarnLevel {
		t.Fatalf("GlobalLevel = %v; want %v", got, zerolog.WarnLevel)
	}
	Configure("none")
	if got := zerolog.GlobalLevel(); got != zerolog.Disabled {
		t.Fatalf("GlobalLevel = %v; want %v", got, zerolog.Disabled)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"all", zerolog.TraceLevel},
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"none", zerolog.Disabled},
		{"off", zerolog.Disabled},
		{" Info ", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}
}
