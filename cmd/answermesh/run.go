package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/hupe1980/answermesh/agent"
	"github.com/hupe1980/answermesh/core"
	"github.com/hupe1980/answermesh/evaluation"
	"github.com/hupe1980/answermesh/internal/team"
	"github.com/hupe1980/answermesh/runner"
	"github.com/hupe1980/answermesh/tool/media"
)

type runOptions struct {
	MetricsAddr string
}

func newRunOneCmd(c *cli) *cobra.Command {
	options := &runOptions{}
	var taskID string

	cmd := &cobra.Command{
		Use:   "run-one [flags]",
		Short: "Answer a single question and store the answer",
		Example: `  # Answer a random question
  answermesh run-one --username alice

  # Answer a specific question
  answermesh run-one --task-id 8e867cd7-cff9-4e6c-867a-ff5ddc2550be`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBatch(cmd, options, func(ctx context.Context, client *evaluation.Client) ([]core.Task, error) {
				if taskID != "" {
					task, err := client.Question(ctx, taskID)
					if err != nil {
						return nil, err
					}
					return []core.Task{task}, nil
				}
				task, err := client.RandomQuestion(ctx)
				if err != nil {
					return nil, err
				}
				return []core.Task{task}, nil
			})
		},
	}

	cmd.Flags().StringVar(&taskID, "task-id", "", "answer this task instead of a random one")
	addRunFlags(cmd, options)

	return cmd
}

func newRunAllCmd(c *cli) *cobra.Command {
	options := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run-all [flags]",
		Short: "Answer every question concurrently and store the answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBatch(cmd, options, func(ctx context.Context, client *evaluation.Client) ([]core.Task, error) {
				return client.Questions(ctx)
			})
		},
	}

	addRunFlags(cmd, options)

	return cmd
}

func addRunFlags(cmd *cobra.Command, options *runOptions) {
	cmd.Flags().StringVar(&options.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running (e.g. :9090)")
}

type taskLoader func(ctx context.Context, client *evaluation.Client) ([]core.Task, error)

func (c *cli) runBatch(cmd *cobra.Command, options *runOptions, load taskLoader) error {
	ctx := cmd.Context()
	s := c.settings

	identity, err := c.identity()
	if err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}

	fs := afero.NewOsFs()

	store, closeStore, err := openStore(ctx, s, fs)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeStore(); cerr != nil {
			c.logger.Warn("cli.store.close_failed", "error", cerr.Error())
		}
	}()

	fallback := evaluation.FallbackDisabled
	if s.LocalFallback {
		fallback = evaluation.FallbackLocal
	}

	client := evaluation.NewClient(s.ScoringAPIBaseURL, func(o *evaluation.ClientOptions) {
		o.Fs = fs
		o.CachePath = s.QuestionsCache
		o.Fallback = fallback
		o.Logger = c.logger
	})

	tasks, err := load(ctx, client)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}

	generator, err := media.NewGeminiGenerator(ctx, s.GeminiAPIKey.Value())
	if err != nil {
		return err
	}

	newModel, err := team.NewModelFactory(s)
	if err != nil {
		return err
	}

	fetcher := evaluation.NewFileFetcher(s.ScoringAPIBaseURL, func(o *evaluation.FileFetcherOptions) {
		o.Fs = fs
		o.DownloadDir = s.DownloadDir
		o.LocalFilesDir = s.LocalFilesDir
		o.Fallback = fallback
		o.Logger = c.logger
	})

	h, err := team.NewHierarchy(team.Deps{
		Settings:  s,
		NewModel:  newModel,
		Fetcher:   fetcher,
		Generator: generator,
		Fs:        fs,
	}, func(o *agent.HierarchyOptions) {
		o.ModelTimeout = s.ModelTimeout
		o.Logger = c.logger
	})
	if err != nil {
		return err
	}

	if options.MetricsAddr != "" {
		stop := serveMetrics(options.MetricsAddr, c)
		defer stop()
	}

	dispatcher := runner.New(runner.HierarchyFactory(h, team.Manager), func(o *runner.Options) {
		o.MaxConcurrency = s.MaxConcurrency
		o.Store = store
		o.Logger = c.logger
	})

	start := time.Now()

	set, err := dispatcher.Dispatch(ctx, identity, tasks)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Complete. %s\n\n", formatElapsed(time.Since(start)))

	return printResults(out, set)
}

// serveMetrics exposes the default Prometheus registry until stop is called.
func serveMetrics(addr string, c *cli) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("cli.metrics.serve_failed", "addr", addr, "error", err.Error())
		}
	}()

	c.logger.Info("cli.metrics.listening", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
