package scenario

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/polite/pkg/addr"
	"github.com/sarchlab/polite/pkg/compiler"
	"github.com/sarchlab/polite/pkg/graph"
	"github.com/sarchlab/polite/pkg/layout"
	"github.com/sarchlab/polite/pkg/placer"
	"github.com/sarchlab/polite/pkg/runtime"
)

// HeatMsg carries one neighbor's value for a heat-diffusion step, the same
// single-float payload apps/Synch/heat and apps/POLite/heat-gals pass
// between grid cells.
type HeatMsg struct {
	Value float64
}

// HeatState is a cell's application state: its current value, how many of
// its MaxSteps diffusion rounds remain, and Pending, the one real neighbor
// contribution Recv has latched for Step to fold in once the fabric-wide
// idle barrier agrees every cell is done sending and receiving this round.
type HeatState struct {
	Value    float64
	Pending  float64
	Step     int
	MaxSteps int
}

// heatHandler implements the 1x1 special case of grid heat diffusion: a
// cell with a single self-loop pin standing in for its one real neighbor,
// averaging over four (three of them permanently absent and so zero).
// Recv only latches the arriving value; Step performs the averaging, so a
// cell's value only updates once runtime.Barrier has confirmed the whole
// mesh is quiescent for this round — the general multi-cell grid relies on
// the same ordering to avoid a cell averaging in a neighbor's
// not-yet-settled value.
type heatHandler struct{}

func (heatHandler) Init(s *runtime.State[HeatState]) {
	s.Ready[0] = s.App.MaxSteps > 0
}

func (heatHandler) Send(s *runtime.State[HeatState], pin int) HeatMsg {
	s.Ready[pin] = false
	return HeatMsg{Value: s.App.Value}
}

// Recv latches this round's one real neighbor contribution (the other
// three, off-grid, never arrive and so never contribute); thread.go marks
// the device active on any Recv, so the next barrier round always runs
// Step on it before it could send again.
func (heatHandler) Recv(s *runtime.State[HeatState], _ struct{}, msg HeatMsg) {
	s.App.Pending = msg.Value
}

// Step folds Pending into Value and re-arms the next round's send if any
// rounds remain. Once MaxSteps rounds have run it leaves Value untouched,
// so a cell with MaxSteps 0 keeps its seeded value.
func (heatHandler) Step(s *runtime.State[HeatState]) bool {
	if s.App.Step >= s.App.MaxSteps {
		return false
	}
	s.App.Value = s.App.Pending / 4
	s.App.Step++
	if s.App.Step < s.App.MaxSteps {
		s.Ready[0] = true
	}
	return false
}

func (heatHandler) Finish(s *runtime.State[HeatState], emit func(key string, value uint32)) {
	emit("value_bits", floatBits(s.App.Value))
}

// floatBits packs a float64 into the low 32 bits losslessly enough for this
// scenario's range (heat values after a handful of /4 rounds) by scaling
// into a fixed-point uint32 with 16 fractional bits — Finish's emit channel
// is uint32-only, the same key/value shape hostlink.Protocol's KeyVal event
// carries.
func floatBits(v float64) uint32 {
	return uint32(v * 65536)
}

// heatParams is the smallest machine a single device needs.
var heatParams = addr.MachineParams{
	MeshXBits:          0,
	MeshYBits:          0,
	MailboxMeshXBits:   0,
	MailboxMeshYBits:   0,
	LogCoresPerMailbox: 0,
	LogThreadsPerCore:  0,
}

// BuildHeat constructs the 1x1 grid: one device with a self-loop pin,
// seeded to value and due to run for steps diffusion rounds.
func BuildHeat(value float64, steps int) (*compiler.Graph[struct{}], map[graph.DeviceId]HeatState) {
	g := compiler.NewGraph[struct{}](1, heatParams)
	id := g.NewDevice()
	if err := g.AddEdge(id, 0, id); err != nil {
		panic(err)
	}
	initial := map[graph.DeviceId]HeatState{
		id: {Value: value, MaxSteps: steps},
	}
	return g, initial
}

// RunHeat maps, builds, and runs the 1x1 heat scenario to completion,
// returning the cell's final value (expected value/4^steps per S2).
func RunHeat(value float64, steps int) (float64, error) {
	g, initial := BuildHeat(value, steps)
	mapped, err := compiler.Map[struct{}](g, 0, placer.DefaultEffort, layout.DefaultBudget)
	if err != nil {
		return 0, err
	}

	engine := sim.NewSerialEngine()
	var final float64
	threads, _ := compiler.Build[HeatState, struct{}, HeatMsg](
		mapped, heatHandler{}, 1, initial, engine, 1*sim.GHz,
		func(_ addr.DeviceAddr, key string, bits uint32) {
			if key == "value_bits" {
				final = float64(bits) / 65536
			}
		},
	)

	comps := make([]runtime.MeshComponent, len(threads))
	for i, th := range threads {
		comps[i] = th
	}
	runtime.BuildMesh(comps, engine, 1*sim.GHz, "Heat.Mesh")

	if err := engine.Run(); err != nil {
		return 0, err
	}
	return final, nil
}
