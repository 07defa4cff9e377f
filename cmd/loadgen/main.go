package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/okian/kala/internal/loadgen"
	"github.com/okian/kala/pkg/logger"
)

// Default configuration constants.
const (
	defaultPlayers        = 1000
	defaultGamesPerPlayer = 5
	defaultMaxScore       = 1000
	defaultWorkers        = 2 // multiplier for runtime.NumCPU()
	defaultTimeout        = 30 * time.Second
	defaultRunTimeout     = 10 * time.Minute
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		os.Stderr.WriteString("loadgen: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "loadgen",
		Usage: "submit fake players' scores to kala and verify the ranking",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:9080", Usage: "base URL of the service", EnvVars: []string{"KALA_LOADGEN_URL"}},
			&cli.IntFlag{Name: "players", Value: defaultPlayers, Usage: "number of distinct players"},
			&cli.IntFlag{Name: "games", Value: defaultGamesPerPlayer, Usage: "scores submitted per player"},
			&cli.IntFlag{Name: "max-score", Value: defaultMaxScore, Usage: "upper bound of each generated score"},
			&cli.IntFlag{Name: "workers", Value: runtime.NumCPU() * defaultWorkers, Usage: "concurrent submitters"},
			&cli.DurationFlag{Name: "timeout", Value: defaultTimeout, Usage: "HTTP request timeout"},
			&cli.DurationFlag{Name: "run-timeout", Value: defaultRunTimeout, Usage: "bound on the whole run"},
			&cli.StringFlag{Name: "jwt-secret", Usage: "sign bearer tokens instead of sending X-User-* headers", EnvVars: []string{"KALA_JWT_SECRET"}},
			&cli.Uint64Flag{Name: "seed", Usage: "seed for the generated population (0 = random)"},
			&cli.StringFlag{Name: "log-format", Value: "text", Usage: "text or json"},
			&cli.BoolFlag{Name: "verbose", Usage: "log every failed submission"},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	if err := logger.Init(logger.WithFormat(c.String("log-format"))); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("run-timeout"))
	defer cancel()

	_, err := loadgen.Run(ctx, &loadgen.Config{
		BaseURL:        c.String("url"),
		Players:        c.Int("players"),
		GamesPerPlayer: c.Int("games"),
		MaxScore:       c.Int("max-score"),
		Workers:        c.Int("workers"),
		Timeout:        c.Duration("timeout"),
		JWTSecret:      c.String("jwt-secret"),
		Seed:           c.Uint64("seed"),
		Verbose:        c.Bool("verbose"),
	}, logger.Named("loadgen"))
	return err
}
