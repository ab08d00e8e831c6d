package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Brownie44l1/leaf-api/internal/artifact"
	"github.com/Brownie44l1/leaf-api/internal/config"
	"github.com/Brownie44l1/leaf-api/internal/logging"
	"github.com/Brownie44l1/leaf-api/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// app carries what every subcommand needs once flags have been parsed.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger

	newLoader func(model.LoaderConfig, model.Ensurer, *zap.Logger) model.Loader
}

func newRootCmd() *cobra.Command {
	return (&app{v: viper.New(), newLoader: model.NewLoader}).rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "leaf-api",
		Short:         "Plant disease classifier for leaf images",
		Long:          "Classify plant leaf images with a pretrained model, from the browser or the terminal.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/leaf-api.yaml or ./config/leaf-api.yaml)")
	flags.String("model", "", "path of the ONNX model file")
	flags.String("model-url", "", "URL the model is downloaded from when the file is missing")
	flags.String("labels", "", "path of the JSON class index file")
	flags.String("log-level", "", "log level (debug, info, warn, error)")

	a.bindFlag("model.path", root, "model")
	a.bindFlag("model.url", root, "model-url")
	a.bindFlag("model.labels", root, "labels")
	a.bindFlag("log.level", root, "log-level")

	root.AddCommand(newServeCmd(a), newClassifyCmd(a), newFetchCmd(a))
	return root
}

func (a *app) bindFlag(key string, cmd *cobra.Command, name string) {
	f := cmd.PersistentFlags().Lookup(name)
	if f == nil {
		f = cmd.Flags().Lookup(name)
	}
	cobra.CheckErr(a.v.BindPFlag(key, f))
}

func (a *app) init() error {
	var dirs []string
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}
	dirs = append(dirs, filepath.Join(".", "config"))

	cfg, err := config.Load(a.v, a.cfgFile, dirs...)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.logger = logger

	if used := a.v.ConfigFileUsed(); used != "" {
		logger.Debug("using config file", zap.String("path", used))
	}
	return nil
}

func (a *app) fetcher() *artifact.Fetcher {
	return artifact.NewFetcher(a.cfg.Model.FetchTimeout, a.logger)
}

func (a *app) provider() *model.Provider {
	loader := a.newLoader(model.LoaderConfig{
		ModelPath:  a.cfg.Model.Path,
		ModelURL:   a.cfg.Model.URL,
		LabelsPath: a.cfg.Model.Labels,
		ONNX: model.ONNXOptions{
			LibraryPath: a.cfg.ONNX.LibraryPath,
			Threads:     a.cfg.ONNX.Threads,
		},
	}, a.fetcher(), a.logger)
	return model.NewProvider(loader)
}
