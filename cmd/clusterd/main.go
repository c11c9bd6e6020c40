// Command clusterd serves the clustering engine over HTTP and offers a few
// maintenance commands against the same store.
//
//	clusterd serve --config clusterd.toml
//	clusterd seed --store s3://bucket/datasets
//	clusterd fit presets/X2.ckm.zst --method em --k 3 --save x2
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	store      string
	logLevel   string
}

// load reads the config file and applies flag overrides.
func (g *globalFlags) load() (config, error) {
	cfg, err := loadConfig(g.configPath)
	if err != nil {
		return cfg, err
	}
	if g.store != "" {
		cfg.Store = g.store
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:           "clusterd",
		Short:         "Clustering service for k-means, Gaussian mixtures and hierarchical clustering",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "TOML config file")
	cmd.PersistentFlags().StringVar(&g.store, "store", "", "blob store: directory, memory://, s3://bucket/prefix or minio://endpoint/bucket/prefix")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(serveCommand(g), seedCommand(g), fitCommand(g))
	return cmd
}
