package scenario

import (
	"github.com/sarchlab/polite/pkg/compiler"
	"github.com/sarchlab/polite/pkg/report"
	"github.com/sarchlab/polite/pkg/runtime"
)

// summarize builds one report.ThreadSummary per populated thread from its
// live runtime.ThreadStats, the same counters cmd/polite's run subcommand
// renders via pkg/report.Render once a scenario finishes.
func summarize[S, E, M any](mapped *compiler.Mapped[E], threads []*runtime.Thread[S, E, M]) []report.ThreadSummary {
	ids := mapped.Threads()
	out := make([]report.ThreadSummary, len(threads))
	for i, th := range threads {
		out[i] = report.ThreadSummary{
			Thread:   ids[i],
			Board:    mapped.BoardOf(ids[i]),
			Sent:     th.Stats.Sent,
			Received: th.Stats.Received,
			Steps:    th.Stats.Steps,
		}
	}
	return out
}
