package monitoring

import (
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")

	if !called {
		t.Error("custom logger was not called")
	}

	// nil installs a no-op logger
	SetLogger(nil)
	Logf("test message")

	muted := false
	SetLogger(func(format string, v ...interface{}) {
		muted = true
	})
	SetLogger(nil)
	Logf("test")
	if muted {
		t.Error("no-op logger should not have triggered callback")
	}
}

func TestWarnfRoutesThroughLogf(t *testing.T) {
	origLog, origWarn := Logf, Warnf
	defer func() { Logf, Warnf = origLog, origWarn }()

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = format
	})
	Warnf("delta skipped for frame %d", 3)
	if got != "WARN: delta skipped for frame %d" {
		t.Errorf("Warnf did not route through Logf, got %q", got)
	}

	SetWarnLogger(nil)
	got = ""
	Warnf("should be dropped")
	if got != "" {
		t.Error("no-op warn logger should not log")
	}
}
