// Command polite maps, runs, and verifies the bundled demo graphs
// (internal/scenario's ring, heat, and sorter) against the simulated
// vertex-centric runtime, the host-side entry point master-g-childhood's
// go/chr2png/main.go models with a urfave/cli.v2 app of flags and
// subcommands.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/rs/xid"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/tebeka/atexit"
	cli "gopkg.in/urfave/cli.v2"

	"github.com/sarchlab/polite/internal/scenario"
	"github.com/sarchlab/polite/pkg/addr"
	"github.com/sarchlab/polite/pkg/compiler"
	"github.com/sarchlab/polite/pkg/config"
	"github.com/sarchlab/polite/pkg/dashboard"
	"github.com/sarchlab/polite/pkg/hostlink"
	"github.com/sarchlab/polite/pkg/layout"
	"github.com/sarchlab/polite/pkg/placer"
	"github.com/sarchlab/polite/pkg/report"
)

func main() {
	runID := xid.New().String()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil)).With("run", runID)
	slog.SetDefault(logger)

	atexit.Register(func() { logger.Debug("run finished", "run", runID) })

	app := &cli.App{
		Name:    "polite",
		Usage:   "map, run, and verify vertex-centric demo graphs on the simulated fabric",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "scenario", Aliases: []string{"s"}, Value: "ring", Usage: "ring, heat, or sorter"},
			&cli.StringFlag{Name: "scenario-file", Usage: "optional YAML file overriding scenario parameters"},
			&cli.IntFlag{Name: "chatty", Value: 0, Usage: "verbosity level (overrides POLITE_CHATTY)"},
			&cli.StringFlag{Name: "store", Usage: "sqlite file recording run history (run subcommand only)"},
			&cli.BoolFlag{Name: "dashboard", Usage: "serve a live status dashboard while running"},
		},
		Commands: []*cli.Command{
			mapCommand(),
			runCommand(),
			verifyCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		exit(logger, err)
	}
	atexit.Exit(0)
}

// exit logs err and terminates with the code a FabricExitError carries, or
// 1 for any other error kind, per the error-handling design every package
// under pkg/hostlink follows.
func exit(logger *slog.Logger, err error) {
	var fabricErr *hostlink.FabricExitError
	if errors.As(err, &fabricErr) {
		logger.Error("fabric exit", "code", fabricErr.Code)
		atexit.Exit(fabricErr.Code)
	}
	logger.Error("run failed", "err", err)
	atexit.Exit(1)
}

// heatInput is the heat scenario's two tunable parameters, the Go side of
// a Scenario file's "params: {value: ..., steps: ...}" overrides.
type heatInput struct {
	value float64
	steps int
}

var defaultHeatInput = heatInput{value: 100, steps: 3}

// resolveScenario reads the --scenario flag and, if --scenario-file points
// at a YAML file, lets it override the scenario name and the heat
// scenario's value/steps parameters — the same override-the-defaults role
// config.Scenario plays for every bundled demo graph.
func resolveScenario(c *cli.Context) (string, heatInput, error) {
	name := c.String("scenario")
	heat := defaultHeatInput

	path := c.String("scenario-file")
	if path == "" {
		return name, heat, nil
	}

	sc, err := config.LoadScenarioFile(path)
	if err != nil {
		return "", heatInput{}, err
	}
	if sc.Name != "" {
		name = sc.Name
	}
	heat.value = float64(sc.Param("value", int(heat.value)))
	heat.steps = sc.Param("steps", heat.steps)
	return name, heat, nil
}

func mapCommand() *cli.Command {
	return &cli.Command{
		Name:  "map",
		Usage: "place a scenario's devices onto the mesh and print the placement",
		Action: func(c *cli.Context) error {
			name, heat, err := resolveScenario(c)
			if err != nil {
				return cli.Exit(err, 1)
			}
			threads, boardOf, devices, err := mapScenario(name, heat)
			if err != nil {
				return cli.Exit(err, 1)
			}

			fmt.Printf("scenario %q: %d devices across %d threads\n", name, devices, len(threads))
			for _, tid := range threads {
				fmt.Printf("  thread %d  board %d\n", tid, boardOf[tid])
			}
			return nil
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "upload and run a scenario to completion, reporting a summary",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return cli.Exit(err, 1)
			}
			if v := c.Int("chatty"); v != 0 {
				cfg.Chatty = v
			}

			name, heat, err := resolveScenario(c)
			if err != nil {
				return cli.Exit(err, 1)
			}
			started := time.Now()

			if cfg.Chatty > 0 {
				logHostResources(slog.Default())
			}

			if err := uploadScenario(context.Background(), name, heat); err != nil {
				return cli.Exit(err, 1)
			}

			var dash *dashboard.Server
			if c.Bool("dashboard") {
				dash = dashboard.New()
				go func() {
					if err := dash.ListenAndServe(":6060"); err != nil {
						slog.Default().Warn("dashboard stopped", "err", err)
					}
				}()
			}

			sum, err := runScenario(name, heat, dash)
			if err != nil {
				return cli.Exit(err, 1)
			}
			sum.WallClock = time.Since(started)

			report.Render(os.Stdout, sum)

			if path := c.String("store"); path != "" {
				store, err := report.OpenStore(path)
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer store.Close()
				if _, err := store.Record(started, sum); err != nil {
					return cli.Exit(err, 1)
				}
			}
			return nil
		},
	}
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "run a scenario and check its documented property, exiting nonzero on mismatch",
		Action: func(c *cli.Context) error {
			name, heat, err := resolveScenario(c)
			if err != nil {
				return cli.Exit(err, 1)
			}
			if err := verifyScenario(name, heat); err != nil {
				return cli.Exit(err, 1)
			}
			fmt.Printf("scenario %q: verified\n", name)
			return nil
		},
	}
}

// mapScenario builds and maps the named scenario's graph, returning its
// thread placement and device count. Each scenario's edge-label type
// differs, so compiler.Map is instantiated per name rather than through a
// shared interface; only the placement's addr.ThreadId/board results,
// which don't depend on that type parameter, are returned.
func mapScenario(name string, heat heatInput) ([]addr.ThreadId, map[addr.ThreadId]uint32, int, error) {
	boardOf := func(m interface {
		Threads() []addr.ThreadId
		BoardOf(addr.ThreadId) uint32
	}) map[addr.ThreadId]uint32 {
		out := make(map[addr.ThreadId]uint32)
		for _, tid := range m.Threads() {
			out[tid] = m.BoardOf(tid)
		}
		return out
	}

	switch name {
	case "ring":
		g, _ := scenario.BuildRing()
		m, err := compiler.Map[struct{}](g, 0, placer.DefaultEffort, layout.DefaultBudget)
		if err != nil {
			return nil, nil, 0, err
		}
		return m.Threads(), boardOf(m), scenario.RingLength, nil
	case "heat":
		g, _ := scenario.BuildHeat(heat.value, heat.steps)
		m, err := compiler.Map[struct{}](g, 0, placer.DefaultEffort, layout.DefaultBudget)
		if err != nil {
			return nil, nil, 0, err
		}
		return m.Threads(), boardOf(m), 1, nil
	case "sorter":
		g, _, _ := scenario.BuildSorter([2]int{3, 1}, [2]int{4, 2})
		m, err := compiler.Map[scenario.SorterEdge](g, 0, placer.DefaultEffort, layout.DefaultBudget)
		if err != nil {
			return nil, nil, 0, err
		}
		return m.Threads(), boardOf(m), 4, nil
	default:
		return nil, nil, 0, fmt.Errorf("polite: unknown scenario %q", name)
	}
}

func uploadScenario(ctx context.Context, name string, heat heatInput) error {
	w := hostlink.NewWriter(1<<20, 1<<16, slog.Default())
	switch name {
	case "ring":
		return scenario.UploadRing(ctx, w)
	case "heat":
		return scenario.UploadHeat(ctx, w, heat.value, heat.steps)
	case "sorter":
		return scenario.UploadSorter(ctx, w, [2]int{3, 1}, [2]int{4, 2})
	default:
		return fmt.Errorf("polite: unknown scenario %q", name)
	}
}

func runScenario(name string, heat heatInput, dash *dashboard.Server) (report.Summary, error) {
	var track scenario.Tracker
	if dash != nil {
		track = dash.Track
	}
	trackers := func() []scenario.Tracker {
		if track == nil {
			return nil
		}
		return []scenario.Tracker{track}
	}()

	switch name {
	case "ring":
		res, err := scenario.RunRing(trackers...)
		if err != nil {
			return report.Summary{}, err
		}
		return report.Summary{Threads: res.Threads, ExitCode: res.ExitCount, KeyValues: uint64(len(res.ReceivedByDevice) + res.ExitCount)}, nil
	case "heat":
		value, err := scenario.RunHeat(heat.value, heat.steps)
		if err != nil {
			return report.Summary{}, err
		}
		return report.Summary{KeyValues: 1, ExitCode: 0, StdoutBytes: uint64(len(fmt.Sprintf("%f", value)))}, nil
	case "sorter":
		res, err := scenario.RunSorter([2]int{3, 1}, [2]int{4, 2}, trackers...)
		if err != nil {
			return report.Summary{}, err
		}
		return report.Summary{Threads: res.Threads, KeyValues: uint64(len(res.Sorted))}, nil
	default:
		return report.Summary{}, fmt.Errorf("polite: unknown scenario %q", name)
	}
}

func verifyScenario(name string, heat heatInput) error {
	switch name {
	case "ring":
		res, err := scenario.RunRing()
		if err != nil {
			return err
		}
		if res.ExitCount != 1 {
			return fmt.Errorf("polite: verify ring: exit count = %d, want 1", res.ExitCount)
		}
		for da, n := range res.ReceivedByDevice {
			if n != scenario.RingTokens*scenario.RingLoops {
				return fmt.Errorf("polite: verify ring: device %v received %d, want %d", da, n, scenario.RingTokens*scenario.RingLoops)
			}
		}
		return nil
	case "heat":
		got, err := scenario.RunHeat(heat.value, heat.steps)
		if err != nil {
			return err
		}
		want := heat.value
		for i := 0; i < heat.steps; i++ {
			want /= 4
		}
		if diff := got - want; diff > 0.01 || diff < -0.01 {
			return fmt.Errorf("polite: verify heat: got %f, want %f", got, want)
		}
		return nil
	case "sorter":
		res, err := scenario.RunSorter([2]int{3, 1}, [2]int{4, 2})
		if err != nil {
			return err
		}
		want := [4]int{1, 2, 3, 4}
		if res.Sorted != want {
			return fmt.Errorf("polite: verify sorter: got %v, want %v", res.Sorted, want)
		}
		return nil
	default:
		return fmt.Errorf("polite: unknown scenario %q", name)
	}
}

// logHostResources samples host CPU and memory once, the way POLITE_CHATTY
// sessions report extra diagnostics around an upload in the original.
func logHostResources(logger *slog.Logger) {
	percents, err := cpu.Percent(0, false)
	if err != nil {
		logger.Warn("cpu sample failed", "err", err)
	} else if len(percents) > 0 {
		logger.Info("host cpu", "percent", percents[0])
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		logger.Warn("memory sample failed", "err", err)
		return
	}
	logger.Info("host memory", "used_percent", vm.UsedPercent, "total", vm.Total)
}
