package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/focusd/focusd/internal/classifier"
	"github.com/focusd/focusd/internal/config"
	"github.com/focusd/focusd/internal/entitylink"
	"github.com/focusd/focusd/internal/hook"
	"github.com/focusd/focusd/internal/jobqueue"
	"github.com/focusd/focusd/internal/llm"
	"github.com/focusd/focusd/internal/logging"
	"github.com/focusd/focusd/internal/mcpserver"
	"github.com/focusd/focusd/internal/metrics"
	"github.com/focusd/focusd/internal/recorder"
	"github.com/focusd/focusd/internal/retriever"
	"github.com/focusd/focusd/internal/skills"
	"github.com/focusd/focusd/internal/store"
	"github.com/focusd/focusd/internal/worker"
)

func newCLIApp(ctx context.Context, cfg *config.Config) (*cli.App, error) {
	app := &cli.App{
		Name:    "focusd",
		Usage:   "per-developer memory service for a coding assistant",
		Version: Version,
		Commands: []*cli.Command{
			hookCmd(cfg),
			workerCmd(cfg),
			mcpCmd(cfg),
		},
	}
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app, nil
}

func hookCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "hook",
		Usage: "invocation surface the coding assistant calls directly",
		Subcommands: []*cli.Command{
			{
				Name:  "prompt",
				Usage: "derive and emit context for a new user prompt (stdin/stdout JSON, silent on failure)",
				Action: func(c *cli.Context) error {
					ctx, cancel := context.WithTimeout(c.Context, cfg.Context.HookTimeout)
					defer cancel()

					logger := logging.NewSilent()
					st, err := store.Open(ctx, cfg.General.DBURL, logger)
					if err != nil {
						_ = writeEmptyPromptResponse()
						return nil
					}
					defer st.Close()

					cls := classifier.New(st, cfg.Context.RetrieveTimeout)
					_ = cls.Refresh(ctx)
					r := retriever.New(st)

					h := hook.NewPrompt(cls, r, cfg.Context.MaxContextTokens, logger)
					_ = h.Run(ctx, os.Stdin, os.Stdout)
					return nil
				},
			},
			{
				Name:  "stop",
				Usage: "enqueue a completed session for ingestion (stdin JSON, silent on failure)",
				Action: func(c *cli.Context) error {
					ctx, cancel := context.WithTimeout(c.Context, cfg.Context.HookTimeout)
					defer cancel()

					logger := logging.NewSilent()
					st, err := store.Open(ctx, cfg.General.DBURL, logger)
					if err != nil {
						return nil
					}
					defer st.Close()

					q := jobqueue.New(st, "", logger)
					h := hook.NewStop(q, logger)
					_ = h.Run(ctx, os.Stdin, os.Stdout)
					return nil
				},
			},
		},
	}
}

func workerCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "run the cold-path claimer pool until signaled",
		Action: func(c *cli.Context) error {
			logger := logging.New(cfg.General.LogLevel, nil)
			ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			st, err := store.Open(ctx, cfg.General.DBURL, logger)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer st.Close()

			q := jobqueue.New(st, cfg.General.DBURL, logger)
			defer q.Close()

			m := metrics.New()

			llmSvc, err := llm.New(ctx, cfg.AnthropicAPIKey, cfg.Skills.ModelName)
			if err != nil {
				return fmt.Errorf("initializing model service: %w", err)
			}

			cls := classifier.New(st, cfg.Context.RetrieveTimeout)
			if err := cls.Refresh(ctx); err != nil {
				logger.Warn().Err(err).Msg("initial classifier refresh failed")
			}
			linker := entitylink.New(st, cls)
			rec := recorder.New(st, q, logger)
			skillsEngine := skills.New(st, llmSvc, cfg.Skills.MinQualityScore, cfg.Skills.InstalledPath)

			d := &deps{
				store:      st,
				recorder:   rec,
				classifier: cls,
				linker:     linker,
				llm:        llmSvc,
				skills:     skillsEngine,
				skillsCfg: skillsConfig{
					AutoGenerate:       cfg.Skills.AutoGenerate,
					ConfirmationTokens: cfg.Skills.ConfirmationTokens,
				},
				logger: logger,
			}

			w := worker.New(q, m, logger, cfg.Worker.Parallelism, workerID())
			registerHandlers(w, d)
			w.Start(ctx)

			<-ctx.Done()
			w.Stop()
			return nil
		},
	}
}

func mcpCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "serve the read-mostly MCP tool surface over stdio",
		Action: func(c *cli.Context) error {
			logger := logging.New(cfg.General.LogLevel, os.Stderr)
			st, err := store.Open(c.Context, cfg.General.DBURL, logger)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer st.Close()

			return mcpserver.Run(st, cfg, Version)
		},
	}
}

func workerID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s:%d", host, os.Getpid())
}

func writeEmptyPromptResponse() error {
	_, err := os.Stdout.WriteString(`{"context":""}`)
	return err
}
