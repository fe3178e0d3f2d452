// Package report summarizes a completed run: per-thread message counters
// (spec's POLITE_COUNT_MSGS equivalent, surfaced from runtime.ThreadStats),
// the host-visible exit code and timing HostLink's measurement stream
// reports, and a rendered table in the style of core/util.go's PrintState.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sarchlab/polite/pkg/addr"
)

// ThreadSummary is one thread's row in the rendered report.
type ThreadSummary struct {
	Thread   addr.ThreadId
	Board    uint32
	Sent     uint64
	Received uint64
	Steps    uint64
}

// Summary is everything a run reports back to the host, the Go shape of
// the measureDst rows protocol() writes at the end of a HostLink session.
type Summary struct {
	Threads     []ThreadSummary
	ExitCode    int
	WallClock   time.Duration
	KeyValues   uint64
	StdoutBytes uint64
}

// TotalSent is the sum of every thread's Sent counter.
func (s Summary) TotalSent() uint64 {
	var total uint64
	for _, t := range s.Threads {
		total += t.Sent
	}
	return total
}

// TotalReceived is the sum of every thread's Received counter.
func (s Summary) TotalReceived() uint64 {
	var total uint64
	for _, t := range s.Threads {
		total += t.Received
	}
	return total
}

// Render writes a human-readable summary of s to w: a per-thread message
// counter table followed by the run's exit code and timing.
func Render(w io.Writer, s Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Thread Summary")
	t.AppendHeader(table.Row{"Thread", "Board", "Sent", "Received", "Steps"})
	for _, ts := range s.Threads {
		t.AppendRow(table.Row{ts.Thread, ts.Board, ts.Sent, ts.Received, ts.Steps})
	}
	t.AppendFooter(table.Row{"Total", "", s.TotalSent(), s.TotalReceived(), ""})
	t.Render()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Exit code:            %d\n", s.ExitCode)
	fmt.Fprintf(w, "Wall clock:           %s\n", s.WallClock)
	fmt.Fprintf(w, "Exported key/values:  %d\n", s.KeyValues)
	fmt.Fprintf(w, "Stdout bytes:         %d\n", s.StdoutBytes)
}
