package render

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// ScatterHTML writes an interactive echarts page with one scatter series per
// cluster and an optional "Centroids" series.
func ScatterHTML(w io.Writer, points [][]float64, labels []int, centroids [][]float64, title string) error {
	groups, err := groupByLabel(points, labels)
	if err != nil {
		return err
	}
	if err := checkCentroids(centroids); err != nil {
		return err
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
		}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{
			Type:  "scroll",
			Right: "10",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:  "value",
			Scale: opts.Bool(true),
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:  "value",
			Scale: opts.Bool(true),
		}),
	)

	for _, g := range groups {
		data := make([]opts.ScatterData, len(g.points))
		for i, pt := range g.points {
			data[i] = opts.ScatterData{Value: []interface{}{pt[0], pt[1]}, SymbolSize: 8}
		}
		scatter.AddSeries(clusterName(g.label), data)
	}

	if len(centroids) > 0 {
		data := make([]opts.ScatterData, len(centroids))
		for i, c := range centroids {
			data[i] = opts.ScatterData{
				Value:      []interface{}{c[0], c[1]},
				Symbol:     "diamond",
				SymbolSize: 16,
			}
		}
		scatter.AddSeries("Centroids", data)
	}

	return scatter.Render(w)
}
