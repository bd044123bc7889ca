// Copyright 2025 The Cellbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scplot renders embeddings of a processed dataset as static
// images.
package scplot

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/cellbench/cellbench/scdata"
)

// palette holds the cluster colors, reused cyclically when there are
// more clusters than entries.
var palette = []color.RGBA{
	{R: 66, G: 133, B: 244, A: 255},
	{R: 219, G: 68, B: 55, A: 255},
	{R: 244, G: 180, B: 0, A: 255},
	{R: 15, G: 157, B: 88, A: 255},
	{R: 171, G: 71, B: 188, A: 255},
	{R: 0, G: 172, B: 193, A: 255},
	{R: 255, G: 112, B: 67, A: 255},
	{R: 158, G: 157, B: 36, A: 255},
	{R: 92, G: 107, B: 192, A: 255},
	{R: 240, G: 98, B: 146, A: 255},
}

// SaveEmbedding writes a scatter plot of the first two embedding
// components, one colored series per cluster, to the given file. The
// image format follows the file extension, e.g. .png or .svg.
func SaveEmbedding(ds *scdata.Dataset, path string) error {
	if ds.Embedding == nil {
		return fmt.Errorf("scplot: dataset has no embedding")
	}
	if ds.Clusters == nil {
		return fmt.Errorf("scplot: dataset has no cluster labels")
	}
	n, c := ds.Embedding.Dims()
	if c < 2 {
		return fmt.Errorf("scplot: embedding has %d components, need 2", c)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%d cells, %d clusters", n, ds.NClusters)
	p.X.Label.Text = "PC1"
	p.Y.Label.Text = "PC2"
	p.Add(plotter.NewGrid())

	for k := 0; k < ds.NClusters; k++ {
		var pts plotter.XYs
		for i := 0; i < n; i++ {
			if ds.Clusters[i] != k {
				continue
			}
			pts = append(pts, plotter.XY{X: ds.Embedding.At(i, 0), Y: ds.Embedding.At(i, 1)})
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		s.GlyphStyle.Color = palette[k%len(palette)]
		s.GlyphStyle.Radius = vg.Points(2)
		p.Add(s)
		p.Legend.Add(fmt.Sprint(k), s)
	}
	p.Legend.Top = true

	return p.Save(6*vg.Inch, 6*vg.Inch, path)
}
