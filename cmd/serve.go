package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	qhttp "croprec/http"
	"croprec/ml"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the recommendation form and JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.bootstrap()
			if err != nil {
				return err
			}
			defer env.logger.Sync()
			if port > 0 {
				env.cfg.HTTP.Port = port
			}

			svc, err := env.service()
			if err != nil {
				return err
			}
			app := qhttp.NewApp(svc, env.artifacts.Describe(), env.messages, env.logger)
			app.SetTitle(env.cfg.UI.Title)
			server := qhttp.NewServer(qhttp.ServerConfig{
				Port:           env.cfg.HTTP.Port,
				Timeout:        env.cfg.HTTP.Timeout,
				AllowedOrigins: env.cfg.HTTP.AllowedOrigins,
			}, app, env.logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if env.cfg.Artifacts.Watch {
				watcher, err := ml.NewWatcher(ml.ArtifactPaths{
					Pipeline:     env.cfg.PipelinePath(),
					LabelEncoder: env.cfg.LabelEncoderPath(),
				}, env.logger)
				if err != nil {
					return err
				}
				defer watcher.Close()
				go watcher.Run(ctx)
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			env.logger.Info("shutdown signal received")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Stop(shutdownCtx); err != nil {
				env.logger.Error("shutdown failed", zap.Error(err))
				return err
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port, overriding http.port")
	return cmd
}
