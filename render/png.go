package render

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Size is the edge length of rendered images.
const Size = 6 * vg.Inch

// ScatterPNG writes a PNG scatter plot of points colored by label. Centroids,
// when given, are drawn as crosses on top.
func ScatterPNG(w io.Writer, points [][]float64, labels []int, centroids [][]float64, title string) error {
	groups, err := groupByLabel(points, labels)
	if err != nil {
		return err
	}
	if err := checkCentroids(centroids); err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.Add(plotter.NewGrid())

	for i, g := range groups {
		xys := make(plotter.XYs, len(g.points))
		for j, pt := range g.points {
			xys[j].X, xys[j].Y = pt[0], pt[1]
		}
		s, err := plotter.NewScatter(xys)
		if err != nil {
			return fmt.Errorf("render: cluster %d: %w", g.label, err)
		}
		s.GlyphStyle.Color = plotutil.Color(i)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Radius = vg.Points(2.5)
		p.Add(s)
		p.Legend.Add(clusterName(g.label), s)
	}

	if len(centroids) > 0 {
		xys := make(plotter.XYs, len(centroids))
		for i, c := range centroids {
			xys[i].X, xys[i].Y = c[0], c[1]
		}
		s, err := plotter.NewScatter(xys)
		if err != nil {
			return fmt.Errorf("render: centroids: %w", err)
		}
		s.GlyphStyle.Shape = draw.CrossGlyph{}
		s.GlyphStyle.Radius = vg.Points(6)
		s.GlyphStyle.Color = plotutil.Color(len(groups))
		p.Add(s)
		p.Legend.Add("Centroids", s)
	}

	wt, err := p.WriterTo(Size, Size, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
