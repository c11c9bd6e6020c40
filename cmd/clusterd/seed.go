package main

import (
	"context"
	"fmt"
	"path"

	"github.com/spf13/cobra"

	"github.com/hupe1980/clusterkit/blobstore"
	"github.com/hupe1980/clusterkit/dataset"
	"github.com/hupe1980/clusterkit/resource"
)

func seedCommand(g *globalFlags) *cobra.Command {
	var (
		prefix string
		format string
		seed   int64
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the synthetic X1, X2 and X3 datasets to the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if err := seedStore(cmd.Context(), a.blobs, a.rc, prefix, format, seed); err != nil {
				return err
			}
			for _, name := range dataset.Presets {
				fmt.Fprintln(cmd.OutOrStdout(), presetBlob(prefix, name, format))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "presets", "blob prefix")
	cmd.Flags().StringVar(&format, "format", "ckm", "file extension: csv, ckm, ckm.zst, csv.lz4, ...")
	cmd.Flags().Int64Var(&seed, "seed", dataset.DefaultPresetSeed, "generator seed")
	return cmd
}

func presetBlob(prefix, name, format string) string {
	return path.Join(prefix, name+"."+format)
}

// seedStore generates every preset and saves it under prefix.
func seedStore(ctx context.Context, store blobstore.BlobStore, rc *resource.Controller, prefix, format string, seed int64) error {
	for _, name := range dataset.Presets {
		points, err := dataset.Preset(name, seed)
		if err != nil {
			return err
		}
		if err := dataset.Save(ctx, store, presetBlob(prefix, name, format), points, dataset.WithResourceController(rc)); err != nil {
			return fmt.Errorf("seed %s: %w", name, err)
		}
	}
	return nil
}
