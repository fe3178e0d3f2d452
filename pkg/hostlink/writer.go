package hostlink

import (
	"context"
	"encoding/hex"
	"log/slog"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/time/rate"

	"github.com/sarchlab/polite/pkg/addr"
)

// maxWordsPerBeat caps a single write burst to one thread at 15 words (60
// bytes), the same round-robin quantum PGraph::writeRAM uses per thread per
// pass so no single thread's heap image starves the others waiting behind
// it on the shared UART.
const maxWordsPerBeat = 15

// Image is one thread's serialized heap image (device state, in-edge
// table, or routing table region) waiting to be uploaded.
type Image struct {
	Thread addr.ThreadId
	Bytes  []byte
}

// Writer uploads heap images to the fabric over a rate-limited link,
// standing in for HostLink's physical UART in PGraph::writeRAM/write. It
// round-robins across images a few words at a time rather than draining
// one image before moving to the next, and digests each image with
// blake2b so a run's upload can be checked against what was intended
// without re-reading the whole image back off the fabric.
type Writer struct {
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewWriter creates a Writer throttled to bytesPerSec sustained, allowing
// bursts up to burst bytes. logger defaults to slog.Default() if nil.
func NewWriter(bytesPerSec float64, burst int, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), burst),
		logger:  logger,
	}
}

// Write uploads every image, round-robin, respecting the configured rate
// limit, and returns once all images are fully written or ctx is done.
func (w *Writer) Write(ctx context.Context, images []Image) error {
	for _, img := range images {
		sum := blake2b.Sum256(img.Bytes)
		w.logger.Debug("hostlink: uploading heap image",
			"thread", img.Thread,
			"bytes", len(img.Bytes),
			"digest", hex.EncodeToString(sum[:]))
	}

	remaining := make([][]byte, len(images))
	for i, img := range images {
		remaining[i] = img.Bytes
	}

	const beatBytes = maxWordsPerBeat * 4
	for {
		progressed := false
		for i := range remaining {
			if len(remaining[i]) == 0 {
				continue
			}
			n := beatBytes
			if n > len(remaining[i]) {
				n = len(remaining[i])
			}
			if err := w.limiter.WaitN(ctx, n); err != nil {
				return err
			}
			remaining[i] = remaining[i][n:]
			progressed = true
		}
		if !progressed {
			return nil
		}
	}
}
