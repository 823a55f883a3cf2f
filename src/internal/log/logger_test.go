package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)
	defer SetVerbose(false)

	SetVerbose(false)
	Debugf("hidden %d", 1)
	if buf.Len() != 0 {
		t.Fatalf("expected debug message to be suppressed, got %q", buf.String())
	}

	SetVerbose(true)
	Debugf("shown %d", 2)
	Infof("info")
	Warnf("warn")
	Errorf("error")

	out := buf.String()
	for _, want := range []string{"[DBG]", "shown 2", "[INF]", "[WRN]", "[ERR]"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got %q", want, out)
		}
	}
	if lines := strings.Count(out, "\n"); lines != 4 {
		t.Errorf("expected 4 lines, got %d", lines)
	}
}

func TestLogger_ForceStdErr(t *testing.T) {
	var out, errOut bytes.Buffer
	mu.Lock()
	stdout, stderr = &out, &errOut
	mu.Unlock()
	defer SetOutput(nil)
	defer SetForceStdErr(false)

	Infof("to stdout")
	SetForceStdErr(true)
	Infof("to stderr")

	if !strings.Contains(out.String(), "to stdout") || strings.Contains(out.String(), "to stderr") {
		t.Errorf("unexpected stdout %q", out.String())
	}
	if !strings.Contains(errOut.String(), "to stderr") {
		t.Errorf("expected forced message on stderr, got %q", errOut.String())
	}
}
