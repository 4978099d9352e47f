// Package spinner draws a small terminal progress animation.
package spinner

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// frameInterval is the time between two frames.
const frameInterval = 80 * time.Millisecond

// Spinner struct holds the spinner state
type Spinner struct {
	w      io.Writer
	tty    bool
	frames []string
	index  int
}

// NewSpinner creates a spinner writing to w. Frames are only drawn when w
// is a terminal.
func NewSpinner(w io.Writer) *Spinner {
	tty := false
	if f, ok := w.(*os.File); ok {
		tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	// braille arrow sequence
	return &Spinner{
		w:   w,
		tty: tty,
		frames: []string{
			"⣀⣀ ",
			"⣄⣀ ",
			"⣤⣀ ",
			"⣦⣄ ",
			"⣶⣤ ",
			"⣿⣦ ",
			"⣿⣷ ",
			"⣿⣿ ",
			"⣿⣿ ",
			"⣷⣿ ",
			"⣦⣿ ",
			"⣤⣷ ",
			"⣄⣦ ",
			"⣀⣤ ",
			"⣀⣄ ",
			"⣀⣀ ",
		},
	}
}

// Update advances the spinner to the next frame and prints it.
func (s *Spinner) Update() {
	if !s.tty {
		return
	}
	// hide cursor
	fmt.Fprint(s.w, "\033[?25l")
	fmt.Fprintf(s.w, "\r%s", s.frames[s.index])

	s.index++
	if s.index >= len(s.frames) {
		s.index = 0
	}
}

// clearLine returns to column 0 and erases the whole frame.
const clearLine = "\r\033[K"

// Cleanup erases the spinner and shows the cursor
func (s *Spinner) Cleanup() {
	if !s.tty {
		return
	}
	fmt.Fprint(s.w, clearLine)
	fmt.Fprint(s.w, "\033[?25h")
}

// Wait animates the spinner for d, or until ctx is done. It returns
// ctx.Err() when interrupted.
func (s *Spinner) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	defer s.Cleanup()

	timer := time.NewTimer(d)
	defer timer.Stop()
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	s.Update()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case <-ticker.C:
			s.Update()
		}
	}
}
