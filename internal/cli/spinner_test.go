package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer guards a bytes.Buffer shared with the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerDrawsAndClears(t *testing.T) {
	var out syncBuffer
	s := newSpinnerTo(context.Background(), &out, "Working")
	s.start()
	time.Sleep(3 * spinnerInterval)
	s.stop()

	got := out.String()
	if !strings.Contains(got, "Working") {
		t.Errorf("output %q should contain the label", got)
	}
	if !strings.HasSuffix(got, "\r") {
		t.Errorf("output %q should end by clearing the line", got)
	}
}

func TestSpinnerProgress(t *testing.T) {
	s := newSpinnerTo(context.Background(), &syncBuffer{}, "Exporting")
	if got := s.text(); got != "Exporting" {
		t.Errorf("text() = %q, want %q", got, "Exporting")
	}

	var wg sync.WaitGroup
	for i := 1; i <= 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.progress(i, 4)
		}()
	}
	wg.Wait()
	s.progress(4, 4)
	if got := s.text(); got != "Exporting 4/4" {
		t.Errorf("text() = %q, want %q", got, "Exporting 4/4")
	}
}

func TestSpinnerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newSpinnerTo(ctx, &syncBuffer{}, "Working")
	s.start()
	cancel()

	select {
	case <-s.finished:
	case <-time.After(time.Second):
		t.Fatal("spinner kept running after cancel")
	}
	if !s.interrupted() {
		t.Error("interrupted() = false after cancel, want true")
	}
	s.stop()
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s := newSpinnerTo(context.Background(), &syncBuffer{}, "Working")
	s.start()
	s.stop()
	s.stop()
	if s.interrupted() {
		t.Error("interrupted() = true after a plain stop, want false")
	}
}

func TestSpinnerStopWithoutDraw(t *testing.T) {
	var out syncBuffer
	s := newSpinnerTo(context.Background(), &out, "Quick")
	s.start()
	s.stop()
	if got := out.String(); strings.Contains(got, "Quick") && !strings.HasSuffix(got, "\r") {
		t.Errorf("output %q left a line uncleared", got)
	}
}
