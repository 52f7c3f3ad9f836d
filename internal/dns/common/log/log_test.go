package log

import "testing"

func TestConfigureRejectsBadLevel(t *testing.T) {
	if err := Configure("dev", "chatty"); err == nil {
		t.Errorf("expected error for invalid log level, got nil")
	}
}

func TestConfigureAcceptsValidLevels(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error"} {
		if err := Configure("prod", lvl); err != nil {
			t.Errorf("Configure(prod, %q) returned error: %v", lvl, err)
		}
	}
}

func TestSetAndGetLogger(t *testing.T) {
	orig := GetLogger()
	defer SetLogger(orig)

	noop := NewNoopLogger()
	SetLogger(noop)
	if GetLogger() != noop {
		t.Errorf("expected global logger to be the noop logger")
	}
}

func TestNoopLoggerDoesNotPanic(t *testing.T) {
	l := NewNoopLogger()
	l.Info(map[string]any{"k": "v"}, "info")
	l.Warn(nil, "warn")
	l.Error(nil, "error")
	l.Debug(nil, "debug")
}
