package hostlink

import (
	"context"
	"testing"
	"time"

	"github.com/sarchlab/polite/pkg/addr"
)

func TestWriterUploadsAllImages(t *testing.T) {
	w := NewWriter(1<<20, 1<<16, nil) // generous budget, should finish fast

	images := []Image{
		{Thread: addr.ThreadId(0), Bytes: make([]byte, 100)},
		{Thread: addr.ThreadId(1), Bytes: make([]byte, 37)},
		{Thread: addr.ThreadId(2), Bytes: nil},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := w.Write(ctx, images); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWriterRespectsContextCancellation(t *testing.T) {
	// One byte per second with a burst of exactly one beat: the first beat
	// goes out at once, the second would wait far past the deadline.
	w := NewWriter(1, maxWordsPerBeat*4, nil)

	images := []Image{{Thread: addr.ThreadId(0), Bytes: make([]byte, 1000)}}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := w.Write(ctx, images); err == nil {
		t.Fatal("expected context deadline error, got nil")
	}
}
