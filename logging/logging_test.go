package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level, format string
		want          zapcore.Level
		wantErr       bool
	}{
		{"info", "json", zapcore.InfoLevel, false},
		{"debug", "console", zapcore.DebugLevel, false},
		{"WARN", "", zapcore.WarnLevel, false},
		{"loud", "json", 0, true},
		{"info", "xml", 0, true},
	}
	for _, tt := range tests {
		logger, err := New(tt.level, tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%q, %q) error = %v, wantErr %v", tt.level, tt.format, err, tt.wantErr)
			continue
		}
		if err != nil {
			continue
		}
		if !logger.Core().Enabled(tt.want) || (tt.want > zapcore.DebugLevel && logger.Core().Enabled(tt.want-1)) {
			t.Errorf("New(%q) does not log exactly from %v", tt.level, tt.want)
		}
		_ = logger.Sync()
	}
}
