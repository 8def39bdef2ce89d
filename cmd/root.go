// Package cmd wires configuration, artifacts and the recommendation service
// into the croprec command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"croprec/config"
	"croprec/locale"
	"croprec/logging"
	"croprec/ml"
	"croprec/recommend"
)

type rootOptions struct {
	configPath string
	envFile    string
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "croprec",
		Short:         "Recommend a crop from soil and climate measurements",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv(opts.envFile)
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "path to the YAML config file")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the config")

	cmd.AddCommand(newServeCmd(opts), newPredictCmd(opts), newInspectCmd(opts))
	return cmd
}

func Execute() error {
	return NewRootCmd().Execute()
}

// environment is everything a subcommand needs after startup.
type environment struct {
	cfg       *config.Config
	logger    *zap.Logger
	artifacts *ml.Artifacts
	messages  *locale.Messages
}

// bootstrap loads config, builds the logger and reads both artifacts.
// Artifact failures are fatal and returned as *ml.ArtifactLoadError.
func (o *rootOptions) bootstrap() (*environment, error) {
	cfg, err := config.Load(config.Locate(o.configPath))
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	paths := ml.ArtifactPaths{Pipeline: cfg.PipelinePath(), LabelEncoder: cfg.LabelEncoderPath()}
	artifacts, err := ml.LoadArtifacts(paths)
	if err != nil {
		logger.Error("failed to load model artifacts", zap.Error(err))
		_ = logger.Sync()
		return nil, err
	}
	info := artifacts.Describe()
	logger.Info("model artifacts loaded",
		zap.String("estimator", info.Estimator),
		zap.Int("classes", info.Classes),
		zap.Bool("probabilities", info.Probabilities),
		zap.String("pipeline", paths.Pipeline),
	)

	messages, err := locale.New(cfg.UI.Language)
	if err != nil {
		return nil, fmt.Errorf("build message catalog: %w", err)
	}
	return &environment{cfg: cfg, logger: logger, artifacts: artifacts, messages: messages}, nil
}

func (e *environment) service() (*recommend.Service, error) {
	return recommend.NewService(e.artifacts,
		recommend.WithCache(e.cfg.Inference.CacheSize),
		recommend.WithLogger(e.logger),
		recommend.WithLanguage(e.messages.Tag()),
	)
}
