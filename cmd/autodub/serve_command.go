package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"autodub/internal/deps"
	"autodub/internal/jobs"
	"autodub/internal/jobs/history"
	"autodub/internal/logging"
	"autodub/internal/pipeline"
	"autodub/internal/render"
	"autodub/internal/server"
	"autodub/internal/services/translate"
	"autodub/internal/services/tts"
	"autodub/internal/services/whisperx"
	"autodub/internal/services/ytdlp"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dubbing service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := logging.New(logging.Options{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				OutputPaths: []string{
					"stdout",
					filepath.Join(cfg.Paths.LogDir, "autodub.log"),
				},
			})
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				logger.Warn("external dependencies missing; jobs will fail until they are installed",
					logging.String("missing", strings.Join(missing, ", ")))
			}

			hist, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history store: %w", err)
			}
			defer hist.Close()

			store := jobs.NewStore()
			runner := pipeline.NewRunner(cfg, store, logger, pipeline.Deps{
				Downloader:  ytdlp.New(cfg, logger),
				Transcriber: whisperx.New(cfg, logger),
				Translator:  translate.New(cfg, logger),
				Synthesizer: tts.New(cfg, logger),
				Renderer:    render.New(cfg, logger),
				History:     hist,
			})
			srv := server.New(cfg, store, runner, hist, logger)

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.Start(sigCtx); err != nil {
				return err
			}

			<-sigCtx.Done()
			logger.Info("shutdown requested")
			srv.Stop()
			runner.Wait()
			return nil
		},
	}
}
