package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/darkhz/bleconnmgr/config"
	"github.com/darkhz/bleconnmgr/scenario"
	"github.com/darkhz/bleconnmgr/session"
	"github.com/darkhz/bleconnmgr/ui/app"
)

// These values are set at compile-time.
var (
	Version  = ""
	Revision = ""
)

// Run runs the commandline application.
func Run() error {
	return newApp().Run(os.Args)
}

// newApp returns a new commandline application.
func newApp() *cli.App {
	cli.VersionPrinter = func(cCtx *cli.Context) {
		fmt.Fprintf(cCtx.App.Writer, "%s (%s)\n", Version, Revision)
	}

	return &cli.App{
		Name:                   "bleconnmgr",
		Usage:                  "LE background connection manager.",
		UsageText:              "bleconnmgr [global options] [scenario-file]",
		Version:                Version + " (" + Revision + ")",
		Description:            "Simulates and monitors how LE connection requests from many applications share a controller's accept list.",
		Copyright:              "(c) bleconnmgr authors.",
		Compiled:               time.Now(),
		EnableBashCompletion:   true,
		UseShortOptionHandling: true,
		Suggest:                true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "accept-list-size",
				Aliases: []string{"s"},
				EnvVars: []string{"BLECONNMGR_ACCEPT_LIST_SIZE"},
				Usage:   "Specify the number of entries the simulated accept list can hold.",
			},
			&cli.StringFlag{
				Name:    "direct-connect-timeout",
				Aliases: []string{"t"},
				EnvVars: []string{"BLECONNMGR_DIRECT_CONNECT_TIMEOUT"},
				Usage:   "Specify how long a direct connection attempt may take. (For example, '30s')",
			},
			&cli.StringFlag{
				Name:    "announcement-type",
				Aliases: []string{"a"},
				EnvVars: []string{"BLECONNMGR_ANNOUNCEMENT_TYPE"},
				Usage:   "Specify the announcement type that triggers a connection. ('general' or 'targeted')",
			},
			&cli.BoolFlag{
				Name:    "fixed-channel",
				Aliases: []string{"f"},
				EnvVars: []string{"BLECONNMGR_FIXED_CHANNEL"},
				Usage:   "Hand every connection request to the fixed channel layer.",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				EnvVars: []string{"BLECONNMGR_LOG_LEVEL"},
				Usage:   "Specify the log level. (For example, 'debug')",
			},
			&cli.StringFlag{
				Name:    "log-file",
				Aliases: []string{"o"},
				EnvVars: []string{"BLECONNMGR_LOG_FILE"},
				Usage:   "Specify a file to write logs to.",
			},
			&cli.BoolFlag{
				Name:    "no-help-display",
				Aliases: []string{"i"},
				EnvVars: []string{"BLECONNMGR_NO_HELP_DISPLAY"},
				Usage:   "Do not display help keybindings in the application.",
			},
			&cli.BoolFlag{
				Name:    "confirm-on-quit",
				Aliases: []string{"c"},
				EnvVars: []string{"BLECONNMGR_CONFIRM_ON_QUIT"},
				Usage:   "Ask for confirmation before quitting the application.",
			},
			&cli.BoolFlag{
				Name:    "generate",
				Aliases: []string{"g"},
				Usage:   "Generate configuration.",
				Action: func(cliCtx *cli.Context, _ bool) error {
					k := koanf.New(".")

					cfg, err := loadConfig(cliCtx, k)
					if err != nil {
						return err
					}

					return cfg.GenerateAndSave(k)
				},
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Run a scenario against a simulated clock and print the results.",
				ArgsUsage: "<scenario-file>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "quiet",
						Aliases: []string{"q"},
						Usage:   "Only print failed steps.",
					},
				},
				Action: runScenario,
			},
		},
		Action: func(cliCtx *cli.Context) error {
			if cliCtx.Bool("generate") {
				return nil
			}

			cfg, err := loadConfig(cliCtx, koanf.New("."))
			if err != nil {
				return err
			}

			var sc *scenario.Scenario
			if path := cliCtx.Args().First(); path != "" {
				sc, err = scenario.Load(path)
				if err != nil {
					return err
				}
			}

			logger, err := newLogger(cfg.Values, false)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			sess := session.New(sessionOptions(cfg, clock.New(), logger))

			g, ctx := errgroup.WithContext(context.Background())
			g.Go(func() error {
				return sess.Run(ctx)
			})
			g.Go(func() error {
				defer sess.Stop()

				return app.NewApplication().Start(sess, cfg, sc)
			})

			return g.Wait()
		},
		ExitErrHandler: func(_ *cli.Context, err error) {
			if err == nil {
				return
			}

			printError(err)
		},
	}
}

// runScenario runs a scenario with a simulated clock, so that waits
// complete instantly.
func runScenario(cliCtx *cli.Context) error {
	if cliCtx.NArg() != 1 {
		return cli.Exit("a scenario file must be specified", 1)
	}

	cfg, err := loadConfig(cliCtx, koanf.New("."))
	if err != nil {
		return err
	}

	sc, err := scenario.Load(cliCtx.Args().First())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Values, true)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	sess := session.New(sessionOptions(cfg, clock.NewMock(), logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sess.Run(ctx)
	})

	runner := scenario.NewRunner(sess, os.Stdout, logger)
	runner.OnStep = func(index int, step scenario.Step, err error) {
		printStep(index, step, err, cliCtx.Bool("quiet"))
	}

	printInfo(fmt.Sprintf("Running scenario %q (%d steps)", sc.Name, len(sc.Steps)))

	runErr := runner.Run(ctx, sc)

	sess.Stop()
	if err := g.Wait(); err != nil {
		return err
	}

	return runErr
}

// loadConfig loads and validates the configuration.
func loadConfig(cliCtx *cli.Context, k *koanf.Koanf) (*config.Config, error) {
	// required for koanf to merge all global flags under the root namespace.
	for _, c := range cliCtx.Lineage() {
		if c.Command != nil {
			c.Command.Name = "global"
		}
	}

	cfg := config.NewConfig()
	if err := cfg.Load(k, cliCtx); err != nil {
		return nil, err
	}

	if err := cfg.ValidateValues(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// sessionOptions returns the session options for the configuration.
func sessionOptions(cfg *config.Config, clk clock.Clock, logger *zap.Logger) session.Options {
	return session.Options{
		AcceptListSize:   cfg.Values.AcceptListSize,
		Timeout:          cfg.Values.Timeout,
		FixedChannel:     cfg.Values.FixedChannel,
		AnnouncementType: cfg.Values.Announcement,
		Clock:            clk,
		Logger:           logger,
	}
}
