// Command threadexec exercises the thread executor from the command line.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/Swind/go-thread-executor/core"
)

func main() {
	app := &cli.App{
		Name:  "threadexec",
		Usage: "Run blocking work off an event loop",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Value:   "warn",
				Usage:   "zerolog level (debug, info, warn, error)",
				EnvVars: []string{"THREADEXEC_LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			helloCommand(),
			catCommand(),
			fanoutCommand(),
			serveMetricsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

// newLogger builds the executor logger from the global --log-level flag.
func newLogger(c *cli.Context) (core.Logger, error) {
	level, err := zerolog.ParseLevel(c.String("log-level"))
	if err != nil {
		return nil, cli.Exit("invalid --log-level: "+err.Error(), 2)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()
	return core.NewZerologLogger(logger), nil
}
