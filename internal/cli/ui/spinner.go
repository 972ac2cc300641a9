package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a message while a long operation runs, like polling the
// bulk loader. The message may be updated between polling rounds.
type Spinner struct {
	writer   io.Writer
	interval time.Duration
	noColor  bool
	done     chan struct{}
	active   bool

	mu      sync.RWMutex
	message string
}

// NewSpinner creates a spinner writing to w.
func NewSpinner(w io.Writer, message string, noColor bool) *Spinner {
	return &Spinner{
		writer:   w,
		interval: 100 * time.Millisecond,
		noColor:  noColor,
		done:     make(chan struct{}),
		message:  message,
	}
}

// Start begins the animation.
func (s *Spinner) Start() {
	s.active = true
	go s.animate()
}

// Stop halts the animation and clears the line.
func (s *Spinner) Stop() {
	if !s.active {
		return
	}
	s.active = false
	s.done <- struct{}{}
	fmt.Fprint(s.writer, "\r\033[K")
}

// Success stops the spinner and prints a green confirmation.
func (s *Spinner) Success(message string) {
	s.Stop()
	green := color.New(color.FgGreen, color.Bold)
	if s.noColor {
		green.DisableColor()
	}
	green.Fprintf(s.writer, "✓ %s\n", message)
}

// Fail stops the spinner and prints a red failure line.
func (s *Spinner) Fail(message string) {
	s.Stop()
	red := color.New(color.FgRed, color.Bold)
	if s.noColor {
		red.DisableColor()
	}
	red.Fprintf(s.writer, "✗ %s\n", message)
}

// UpdateMessage swaps the message shown next to the spinner.
func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
}

func (s *Spinner) animate() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	cyan := color.New(color.FgCyan)
	if s.noColor {
		cyan.DisableColor()
	}

	frame := 0
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.RLock()
			msg := s.message
			s.mu.RUnlock()
			cyan.Fprintf(s.writer, "\r%s %s", spinnerFrames[frame], msg)
			frame = (frame + 1) % len(spinnerFrames)
		}
	}
}

// WithSpinner runs fn under a spinner, reporting success or failure when it
// returns.
func WithSpinner(w io.Writer, message string, noColor bool, fn func(*Spinner) error) error {
	s := NewSpinner(w, message, noColor)
	s.Start()
	defer s.Stop()

	if err := fn(s); err != nil {
		s.Fail(fmt.Sprintf("%s failed", message))
		return err
	}
	s.Success(message)
	return nil
}
