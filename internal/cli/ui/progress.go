package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a status line while indeterminate work runs
type Spinner struct {
	writer   io.Writer
	message  string
	interval time.Duration
	noColor  bool

	mu      sync.Mutex
	stop    chan struct{}
	stopped sync.WaitGroup
}

// NewSpinner creates a spinner; it does nothing until Start
func NewSpinner(w io.Writer, message string, noColor bool) *Spinner {
	return &Spinner{
		writer:   w,
		message:  message,
		interval: 100 * time.Millisecond,
		noColor:  noColor,
	}
}

// Start begins the animation
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.stopped.Add(1)
	go s.animate(s.stop)
}

// Stop ends the animation and clears the line. The animation goroutine has exited when Stop returns.
func (s *Spinner) Stop() {
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	s.stopped.Wait()
	fmt.Fprint(s.writer, "\r\033[K")
}

// Success stops the spinner and prints a success line
func (s *Spinner) Success(message string) {
	s.Stop()
	WriteSuccess(s.writer, message, s.noColor)
}

// Error stops the spinner and prints a failure line
func (s *Spinner) Error(message string) {
	s.Stop()
	red := color.New(color.FgRed, color.Bold)
	if s.noColor {
		red.DisableColor()
	}
	red.Fprintf(s.writer, "❌ %s\n", message)
}

func (s *Spinner) animate(stop <-chan struct{}) {
	defer s.stopped.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	cyan := color.New(color.FgCyan)
	if s.noColor {
		cyan.DisableColor()
	}

	for frame := 0; ; frame = (frame + 1) % len(spinnerFrames) {
		select {
		case <-stop:
			return
		case <-ticker.C:
			cyan.Fprintf(s.writer, "\r%s %s", spinnerFrames[frame], s.message)
		}
	}
}

// WithSpinner runs fn while a spinner shows message, then reports the outcome
func WithSpinner(w io.Writer, message string, noColor bool, fn func() error) error {
	spinner := NewSpinner(w, message, noColor)
	spinner.Start()

	if err := fn(); err != nil {
		spinner.Error(message + " failed")
		return err
	}
	spinner.Success(message)
	return nil
}
