package scenario

import (
	"context"

	"github.com/sarchlab/polite/pkg/compiler"
	"github.com/sarchlab/polite/pkg/hostlink"
	"github.com/sarchlab/polite/pkg/layout"
	"github.com/sarchlab/polite/pkg/placer"
)

// UploadRing maps the token-ring graph and uploads every thread's in-edge
// and routing tables through w, the same write()-before-run sequence
// PGraph::write performs ahead of booting the fabric — cmd/polite's run
// subcommand does this before constructing and running the simulated
// threads themselves.
func UploadRing(ctx context.Context, w *hostlink.Writer) error {
	g, _ := BuildRing()
	mapped, err := compiler.Map[struct{}](g, 0, placer.DefaultEffort, layout.DefaultBudget)
	if err != nil {
		return err
	}
	return compiler.Write[struct{}](ctx, mapped, w)
}

// UploadHeat is UploadRing's heat-scenario counterpart.
func UploadHeat(ctx context.Context, w *hostlink.Writer, value float64, steps int) error {
	g, _ := BuildHeat(value, steps)
	mapped, err := compiler.Map[struct{}](g, 0, placer.DefaultEffort, layout.DefaultBudget)
	if err != nil {
		return err
	}
	return compiler.Write[struct{}](ctx, mapped, w)
}

// UploadSorter is UploadRing's two-sorter-scenario counterpart.
func UploadSorter(ctx context.Context, w *hostlink.Writer, pair1, pair2 [2]int) error {
	g, _, _ := BuildSorter(pair1, pair2)
	mapped, err := compiler.Map[SorterEdge](g, 0, placer.DefaultEffort, layout.DefaultBudget)
	if err != nil {
		return err
	}
	return compiler.Write[SorterEdge](ctx, mapped, w)
}
