package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Swind/go-thread-executor/core"
	obs "github.com/Swind/go-thread-executor/observability/prometheus"
)

func helloCommand() *cli.Command {
	return &cli.Command{
		Name:  "hello",
		Usage: "Greet from a worker goroutine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "name",
				Aliases: []string{"n"},
				Value:   "World",
				Usage:   "Who to greet",
			},
			&cli.IntFlag{
				Name:  "exit",
				Usage: "Abort the task with this exit code instead",
			},
		},
		Action: helloAction,
	}
}

func helloAction(c *cli.Context) error {
	logger, err := newLogger(c)
	if err != nil {
		return err
	}

	name := c.String("name")
	exitCode := c.Int("exit")

	executor := core.NewThreadExecutor(core.WithName("hello"), core.WithLogger(logger))
	return executor.Do(c.Context, func(ctx context.Context) error {
		fut, err := core.Submit(executor, func(ctx context.Context) (string, error) {
			if exitCode != 0 {
				core.Exit(exitCode)
			}
			return "Hello, " + name + "!", nil
		})
		if err != nil {
			return err
		}

		greeting, err := fut.Await(ctx)
		var exitErr *core.ExitError
		if errors.As(err, &exitErr) {
			return cli.Exit(exitErr.Error(), exitErr.Code)
		}
		if err != nil {
			return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
		}

		fmt.Println(greeting)
		return nil
	})
}

func catCommand() *cli.Command {
	return &cli.Command{
		Name:      "cat",
		Usage:     "Stream a file line by line from a worker",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "head",
				Aliases: []string{"n"},
				Usage:   "Stop after this many lines (0 for all)",
			},
		},
		Action: catAction,
	}
}

func catAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("cat takes exactly one FILE argument", 2)
	}
	logger, err := newLogger(c)
	if err != nil {
		return err
	}

	path := c.Args().First()
	head := c.Int("head")

	executor := core.NewThreadExecutor(core.WithName("cat"), core.WithLogger(logger))
	return executor.Do(c.Context, func(ctx context.Context) error {
		var openErr error
		stream, err := core.SubmitStream(executor, func(yield func(string) bool) {
			f, err := os.Open(path)
			if err != nil {
				openErr = err
				return
			}
			defer f.Close()

			scanner := bufio.NewScanner(f)
			for scanner.Scan() {
				if !yield(scanner.Text()) {
					return
				}
			}
		})
		if err != nil {
			return err
		}

		lines := 0
		for line, err := range stream.All(ctx) {
			if err != nil {
				return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
			}
			fmt.Println(line)
			lines++
			if head > 0 && lines == head {
				break
			}
		}
		// The iterator body has finished once the stream ended on its own.
		if openErr != nil && lines == 0 {
			return cli.Exit(fmt.Sprintf("Failed: %v", openErr), 1)
		}
		return nil
	})
}

func fanoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "fanout",
		Usage: "Run simulated blocking calls on an elastic pool",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Value: 4, Usage: "Pool cap"},
			&cli.IntFlag{Name: "tasks", Aliases: []string{"t"}, Value: 16, Usage: "Number of calls"},
			&cli.DurationFlag{Name: "delay", Value: 50 * time.Millisecond, Usage: "Duration of each call"},
			&cli.Float64Flag{Name: "rate", Usage: "Start at most this many calls per second (0 for unlimited)"},
		},
		Action: fanoutAction,
	}
}

func fanoutAction(c *cli.Context) error {
	logger, err := newLogger(c)
	if err != nil {
		return err
	}

	tasks := c.Int("tasks")
	delay := c.Duration("delay")
	opts := []core.Option{core.WithName("fanout"), core.WithLogger(logger)}
	if r := c.Float64("rate"); r > 0 {
		opts = append(opts, core.WithRateLimit(r, 1))
	}

	pool := core.NewMultiThreadExecutor(c.Int("workers"), opts...)
	start := time.Now()
	err = pool.Do(c.Context, func(ctx context.Context) error {
		call := core.Wrap(pool, func(ctx context.Context, id int) (string, error) {
			time.Sleep(delay)
			worker, _ := core.WorkerFromContext(ctx)
			return fmt.Sprintf("call %d on %s", id, worker.Name), nil
		})

		g, gctx := errgroup.WithContext(ctx)
		results := make([]string, tasks)
		for i := range tasks {
			fut, err := call(i)
			if err != nil {
				return err
			}
			g.Go(func() error {
				v, err := fut.Await(gctx)
				results[i] = v
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		for _, r := range results {
			fmt.Println(r)
		}
		return nil
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}

	stats := pool.Stats()
	fmt.Printf("✓ %d calls in %v, %d workers spawned (cap %d)\n",
		stats.Completed, time.Since(start).Round(time.Millisecond), stats.Spawned, stats.MaxWorkers)
	return nil
}

func serveMetricsCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve-metrics",
		Usage: "Serve Prometheus metrics for a pool under synthetic load",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: ":2112", Usage: "Listen address"},
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Value: 4, Usage: "Pool cap"},
			&cli.DurationFlag{Name: "interval", Value: 100 * time.Millisecond, Usage: "Submission interval"},
		},
		Action: serveMetricsAction,
	}
}

func serveMetricsAction(c *cli.Context) error {
	logger, err := newLogger(c)
	if err != nil {
		return err
	}

	reg := prom.NewRegistry()
	exporter, err := obs.NewMetricsExporter("threadexecutor", reg, obs.ExporterOptions{})
	if err != nil {
		return err
	}
	poller, err := obs.NewSnapshotPoller(reg, time.Second)
	if err != nil {
		return err
	}

	pool := core.NewMultiThreadExecutor(c.Int("workers"),
		core.WithName("serve"),
		core.WithLogger(logger),
		core.WithMetrics(exporter),
	)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: c.String("addr"), Handler: mux}

	return pool.Do(ctx, func(ctx context.Context) error {
		poller.AddExecutor("serve", pool)
		if loop, ok := pool.Loop().(*core.SingleThreadTaskRunner); ok {
			poller.AddLoop(loop.Name(), loop)
		}
		poller.Start(ctx)
		defer poller.Stop()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
		g.Go(func() error {
			ticker := time.NewTicker(c.Duration("interval"))
			defer ticker.Stop()
			for n := 0; ; n++ {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
				}
				fut, err := pool.Submit(func(ctx context.Context) (any, error) {
					time.Sleep(time.Duration(n%5) * 10 * time.Millisecond)
					if n%7 == 0 {
						return nil, errors.New("synthetic failure")
					}
					return n, nil
				})
				if err != nil {
					return err
				}
				fut.CancelAfter(30 * time.Millisecond)
			}
		})

		fmt.Printf("Serving metrics on %s/metrics, Ctrl-C to stop\n", c.String("addr"))
		return g.Wait()
	})
}
