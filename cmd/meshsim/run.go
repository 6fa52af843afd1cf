package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/campfirenet/meshsim/datarecording"
	"github.com/campfirenet/meshsim/instrumentation"
	"github.com/campfirenet/meshsim/monitoring"
	"github.com/campfirenet/meshsim/objectstore"
	"github.com/campfirenet/meshsim/simulation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type runOptions struct {
	agents      int
	duration    time.Duration
	seed        int64
	speed       float64
	freq        float64
	monitor     bool
	monitorPort int
	openBrowser bool
	record      string
	storeDir    string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a field of probing clients.",
	Long: "`run` places agents at random on the field and lets each of " +
		"them discover, handshake and greet its neighbors. Every flag " +
		"can also be set with a MESHSIM_ variable, e.g. MESHSIM_AGENTS.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts, err := readRunOptions(cmd)
		if err != nil {
			return err
		}

		level, _ := cmd.Flags().GetString("log-level")

		logger, err := newLogger(level)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		return runSimulation(ctx, opts, clock.New(), logger,
			cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	flags := runCmd.Flags()
	flags.Int("agents", 30, "Number of agents on the field.")
	flags.Duration("duration", 30*time.Second,
		"Wall-clock time to run for.")
	flags.Int64("seed", 0, "Random seed. Zero picks one from the clock.")
	flags.Float64("speed", 1,
		"Simulated seconds per wall-clock second.")
	flags.Float64("freq", 60, "Simulation ticks per wall-clock second.")
	flags.Bool("monitor", false, "Serve the monitoring page.")
	flags.Int("monitor-port", 0, "Port of the monitoring page.")
	flags.Bool("open-browser", false, "Open the monitoring page.")
	flags.String("record", "",
		"SQLite file to record link events into.")
	flags.String("store-dir", "meshsim_store",
		"Directory where received greetings are stored.")
}

func readRunOptions(cmd *cobra.Command) (runOptions, error) {
	var (
		opts runOptions
		errs []error
	)

	flags := cmd.Flags()
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var err error
	opts.agents, err = flags.GetInt("agents")
	collect(err)
	opts.duration, err = flags.GetDuration("duration")
	collect(err)
	opts.seed, err = flags.GetInt64("seed")
	collect(err)
	opts.speed, err = flags.GetFloat64("speed")
	collect(err)
	opts.freq, err = flags.GetFloat64("freq")
	collect(err)
	opts.monitor, err = flags.GetBool("monitor")
	collect(err)
	opts.monitorPort, err = flags.GetInt("monitor-port")
	collect(err)
	opts.openBrowser, err = flags.GetBool("open-browser")
	collect(err)
	opts.record, err = flags.GetString("record")
	collect(err)
	opts.storeDir, err = flags.GetString("store-dir")
	collect(err)

	if err := errors.Join(errs...); err != nil {
		return opts, err
	}

	switch {
	case opts.agents < 2:
		return opts, fmt.Errorf("at least 2 agents are needed, got %d",
			opts.agents)
	case opts.speed <= 0:
		return opts, fmt.Errorf("speed must be positive, got %g", opts.speed)
	case opts.freq <= 0:
		return opts, fmt.Errorf("freq must be positive, got %g", opts.freq)
	}

	if opts.seed == 0 {
		opts.seed = time.Now().UnixNano()
	}

	return opts, nil
}

// runSimulation builds the simulation, runs it with one probing client per
// agent until the duration elapses, and prints a summary to out. clk is the
// wall clock that paces the runner; links run on simulated time.
func runSimulation(
	ctx context.Context,
	opts runOptions,
	clk clock.Clock,
	logger *zap.Logger,
	out io.Writer,
) error {
	registry := prometheus.NewRegistry()
	counter := instrumentation.NewOutcomeCounter()
	logHook := instrumentation.NewLogHook(logger)

	builder := simulation.MakeBuilder().
		WithLogger(logger).
		WithRandomAgents(opts.agents, rand.New(rand.NewSource(opts.seed))).
		WithLinkHook(logHook).
		WithLinkHook(instrumentation.NewMetricsHook(registry)).
		WithLinkHook(counter)

	if opts.record != "" {
		recorder := datarecording.New(opts.record)
		defer recorder.Close()

		execRecorder := datarecording.NewExecRecorder(recorder)
		execRecorder.Start()
		execRecorder.Note("Seed", strconv.FormatInt(opts.seed, 10))
		execRecorder.Note("Agents", strconv.Itoa(opts.agents))
		defer execRecorder.End()

		epoch := float64(simulation.Epoch.UnixNano()) / 1e9
		builder = builder.WithLinkHook(
			instrumentation.NewRecordingHook(recorder, epoch))
	}

	sim := builder.Build()
	sim.AcceptHook(logHook)
	sim.Start()

	defer func() {
		if err := sim.Close(); err != nil {
			logger.Error("cannot close simulation", zap.Error(err))
		}
	}()

	runner := simulation.NewRunner(sim, clk, simulation.Freq(opts.freq),
		opts.speed)
	store := objectstore.NewFileSystem(opts.storeDir)

	ctx, cancel := clk.WithTimeout(ctx, opts.duration)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runner.Run(ctx) })

	clients := make([]*probingClient, 0, opts.agents)
	for _, adapter := range sim.Adapters() {
		client := newProbingClient(adapter, store, logger)
		clients = append(clients, client)
		g.Go(func() error { return client.Run(ctx) })
	}

	if opts.monitor {
		m, err := startMonitor(ctx, g, opts, sim, runner, registry, clk,
			logger)
		if err != nil {
			cancel()
			_ = g.Wait()
			return err
		}

		defer func() {
			if err := m.Shutdown(context.Background()); err != nil {
				logger.Warn("cannot stop monitor", zap.Error(err))
			}
		}()
	}

	if err := g.Wait(); err != nil {
		return err
	}

	printSummary(out, runner, clients, counter)

	return nil
}

func startMonitor(
	ctx context.Context,
	g *errgroup.Group,
	opts runOptions,
	sim *simulation.Simulation,
	runner *simulation.Runner,
	registry *prometheus.Registry,
	clk clock.Clock,
	logger *zap.Logger,
) (*monitoring.Monitor, error) {
	m := monitoring.NewMonitor().
		WithLogger(logger).
		WithPortNumber(opts.monitorPort)
	m.RegisterSimulation(sim)
	m.RegisterController(runner)
	m.RegisterGatherer(registry)

	url, err := m.StartServer()
	if err != nil {
		return nil, err
	}

	if opts.openBrowser {
		m.OpenBrowser(url)
	}

	bar := m.CreateProgressBar("Run", uint64(opts.duration.Seconds()))
	start := clk.Now()

	g.Go(func() error {
		defer m.CompleteProgressBar(bar)

		ticker := clk.Ticker(time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				bar.SetFinished(uint64(clk.Since(start).Seconds()))
			}
		}
	})

	return m, nil
}

func printSummary(
	out io.Writer,
	runner *simulation.Runner,
	clients []*probingClient,
	counter *instrumentation.OutcomeCounter,
) {
	var total ClientStats
	for _, c := range clients {
		s := c.Stats()
		total.Handshakes += s.Handshakes
		total.Sent += s.Sent
		total.Received += s.Received
	}

	fmt.Fprintf(out, "simulated %s with %d agents\n",
		runner.Now().Round(time.Millisecond), len(clients))
	fmt.Fprintf(out, "handshakes: %d, greetings sent: %d, received: %d\n",
		total.Handshakes, total.Sent, total.Received)

	for _, outcome := range counter.Outcomes() {
		fmt.Fprintf(out, "  %-20s %d\n", outcome, counter.Count(outcome))
	}

	fmt.Fprintf(out, "bytes delivered: %d\n", counter.BytesDelivered())
}
