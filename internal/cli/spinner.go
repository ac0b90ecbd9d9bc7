package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mattn/go-runewidth"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// spinner animates a label with an optional done/total counter. It draws on
// stderr by default so data written to stdout stays clean, and stops on its
// own when its context is cancelled.
type spinner struct {
	w     io.Writer
	label string
	ctx   context.Context

	done, total atomic.Int64

	mu    sync.Mutex
	width int // widest line drawn, for clearing

	quit     chan struct{}
	finished chan struct{}
	stopOnce sync.Once
}

func newSpinner(ctx context.Context, label string) *spinner {
	return newSpinnerTo(ctx, os.Stderr, label)
}

func newSpinnerTo(ctx context.Context, w io.Writer, label string) *spinner {
	return &spinner{
		w:        w,
		label:    label,
		ctx:      ctx,
		quit:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// progress updates the counter shown after the label. Safe for concurrent
// use, as batch workers report from several goroutines.
func (s *spinner) progress(done, total int) {
	s.total.Store(int64(total))
	s.done.Store(int64(done))
}

func (s *spinner) text() string {
	if total := s.total.Load(); total > 0 {
		return fmt.Sprintf("%s %d/%d", s.label, s.done.Load(), total)
	}
	return s.label
}

func (s *spinner) start() {
	go func() {
		defer close(s.finished)
		tick := time.NewTicker(spinnerInterval)
		defer tick.Stop()
		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				return
			case <-s.quit:
				return
			case <-tick.C:
				s.draw(spinnerFrames[i%len(spinnerFrames)])
			}
		}
	}()
}

func (s *spinner) draw(frame string) {
	line := s.text()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = max(s.width, runewidth.StringWidth(line)+2)
	fmt.Fprintf(s.w, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(line))
}

// stop ends the animation and clears its line. Calling it more than once is
// fine.
func (s *spinner) stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		<-s.finished
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.width > 0 {
			fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.width))
		}
	})
}

// fail stops the spinner and prints msg as an error.
func (s *spinner) fail(msg string) {
	s.stop()
	printError("%s", msg)
}

// interrupted reports whether the spinner's context ended before stop.
func (s *spinner) interrupted() bool { return s.ctx.Err() != nil }
