package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/clusterkit"
	"github.com/hupe1980/clusterkit/codec"
	"github.com/hupe1980/clusterkit/dataset"
	"github.com/hupe1980/clusterkit/projection"
	"github.com/hupe1980/clusterkit/render"
)

type fitFlags struct {
	method      string
	k           int
	maxIters    int
	linkage     string
	seed        int64
	normalize   bool
	header      bool
	skipColumns int
	save        string
	plot        string
	all         bool
}

func fitCommand(g *globalFlags) *cobra.Command {
	f := &fitFlags{}
	cmd := &cobra.Command{
		Use:   "fit <dataset-blob>",
		Short: "Cluster a dataset from the store and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			points, err := dataset.Load(cmd.Context(), a.blobs, args[0],
				dataset.WithCSVOptions(dataset.CSVOptions{Header: f.header, SkipColumns: f.skipColumns}),
				dataset.WithResourceController(a.rc),
			)
			if err != nil {
				return err
			}
			if f.normalize {
				points = dataset.NormalizeMax(points)
			}

			req := clusterkit.Request{
				Method:   clusterkit.Method(f.method),
				Points:   points,
				K:        f.k,
				MaxIters: f.maxIters,
				Linkage:  f.linkage,
			}
			if cmd.Flags().Changed("seed") {
				req.Seed = &f.seed
			}

			out := codec.Indented(a.codec, "  ")
			if f.all {
				results, err := a.engine.FitAll(cmd.Context(), req)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(append(codec.MustMarshal(out, results), '\n'))
				return err
			}

			res, err := a.engine.Fit(cmd.Context(), req)
			if err != nil {
				return err
			}
			if f.save != "" {
				id, err := a.results.Save(cmd.Context(), f.save, res)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "saved run", id)
			}
			if f.plot != "" {
				if err := writePlot(f.plot, points, res); err != nil {
					return err
				}
			}

			data, err := out.Marshal(res)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(append(data, '\n'))
			return err
		},
	}
	cmd.Flags().StringVarP(&f.method, "method", "m", string(clusterkit.MethodKMeans), "kmeans, em or hierarchical")
	cmd.Flags().IntVarP(&f.k, "k", "k", 3, "number of clusters")
	cmd.Flags().IntVar(&f.maxIters, "max-iters", 0, "iteration budget (0 = engine default)")
	cmd.Flags().StringVar(&f.linkage, "linkage", "", "hierarchical linkage (default ward)")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "random seed")
	cmd.Flags().BoolVar(&f.normalize, "normalize", false, "divide every column by its maximum")
	cmd.Flags().BoolVar(&f.header, "header", false, "CSV has a header row")
	cmd.Flags().IntVar(&f.skipColumns, "skip-columns", 0, "leading CSV columns to drop")
	cmd.Flags().StringVar(&f.save, "save", "", "save the result under this dataset name")
	cmd.Flags().StringVar(&f.plot, "plot", "", "write a scatter plot (.png or .html)")
	cmd.Flags().BoolVar(&f.all, "all", false, "run every method and print a map of results")
	return cmd
}

// writePlot renders the fit to a local file. Wide data is projected with PCA.
func writePlot(name string, points [][]float64, res *clusterkit.Result) error {
	flat, centroids := points, res.Centroids
	if len(points[0]) != 2 {
		model, err := projection.Fit(points, 2)
		if err != nil {
			return err
		}
		flat, centroids = model.Transform(points), model.Transform(centroids)
	}

	out, err := os.Create(name)
	if err != nil {
		return err
	}
	defer out.Close()

	title := fmt.Sprintf("%s (k=%d)", res.Method, res.K())
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".png":
		err = render.ScatterPNG(out, flat, res.Labels, centroids, title)
	case ".html":
		err = render.ScatterHTML(out, flat, res.Labels, centroids, title)
	default:
		err = fmt.Errorf("plot: unsupported extension %q", ext)
	}
	if err != nil {
		return err
	}
	return out.Close()
}
