package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestSpinnerSuccess(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	s := NewSpinner(&buf, "loading", true)
	s.Start()
	s.Success("3 load jobs completed")

	if !strings.Contains(buf.String(), "✓ 3 load jobs completed") {
		t.Errorf("expected success line, got %q", buf.String())
	}
}

func TestSpinnerFail(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	s := NewSpinner(&buf, "loading", true)
	s.Start()
	s.Fail("load jobs failed")

	if !strings.Contains(buf.String(), "✗ load jobs failed") {
		t.Errorf("expected failure line, got %q", buf.String())
	}
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner(&buf, "idle", true)

	// Must not block or write
	s.Stop()

	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestWithSpinner(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	t.Run("success", func(t *testing.T) {
		var buf bytes.Buffer
		err := WithSpinner(&buf, "staging batches", true, func(s *Spinner) error {
			s.UpdateMessage("staging batches (2 of 3)")
			return nil
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(buf.String(), "✓ staging batches") {
			t.Errorf("expected success line, got %q", buf.String())
		}
	})

	t.Run("failure", func(t *testing.T) {
		var buf bytes.Buffer
		wantErr := errors.New("upload rejected")
		err := WithSpinner(&buf, "staging batches", true, func(s *Spinner) error {
			return wantErr
		})
		if !errors.Is(err, wantErr) {
			t.Fatalf("expected wrapped error, got %v", err)
		}
		if !strings.Contains(buf.String(), "✗ staging batches failed") {
			t.Errorf("expected failure line, got %q", buf.String())
		}
	})
}
