package report

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/velocity.ptv/internal/ptv"
)

var (
	sourceColor = color.RGBA{R: 0x31, G: 0x68, B: 0x8e, A: 0xff}
	targetColor = color.RGBA{R: 0xb5, G: 0xde, B: 0x2b, A: 0xff}
	vectorColor = color.RGBA{R: 0x44, G: 0x01, B: 0x54, A: 0xff}
)

// segments draws one line per displacement vector, from the source position
// to the target position, projected onto the XY plane.
type segments struct {
	vs    []ptv.Vector
	style draw.LineStyle
}

// Plot implements plot.Plotter.
func (s *segments) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	for _, v := range s.vs {
		end := r3.Add(v.Position, v.Displacement)
		c.StrokeLine2(s.style,
			trX(v.Position.X), trY(v.Position.Y),
			trX(end.X), trY(end.Y))
	}
}

// DataRange implements plot.DataRanger.
func (s *segments) DataRange() (xmin, xmax, ymin, ymax float64) {
	xmin, ymin = math.Inf(1), math.Inf(1)
	xmax, ymax = math.Inf(-1), math.Inf(-1)
	for _, v := range s.vs {
		for _, p := range []ptv.Point{v.Position, r3.Add(v.Position, v.Displacement)} {
			xmin, xmax = math.Min(xmin, p.X), math.Max(xmax, p.X)
			ymin, ymax = math.Min(ymin, p.Y), math.Max(ymax, p.Y)
		}
	}
	return xmin, xmax, ymin, ymax
}

// NewMatchPlot builds an XY projection of the matched particles: source
// positions, target positions and the vector joining them.
func NewMatchPlot(title string, vs []ptv.Vector) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"
	p.Add(plotter.NewGrid())

	if len(vs) == 0 {
		return p, nil
	}

	src := make(plotter.XYs, len(vs))
	dst := make(plotter.XYs, len(vs))
	for i, v := range vs {
		src[i] = plotter.XY{X: v.Position.X, Y: v.Position.Y}
		end := r3.Add(v.Position, v.Displacement)
		dst[i] = plotter.XY{X: end.X, Y: end.Y}
	}

	srcScatter, err := plotter.NewScatter(src)
	if err != nil {
		return nil, fmt.Errorf("source scatter: %w", err)
	}
	srcScatter.GlyphStyle.Color = sourceColor
	srcScatter.GlyphStyle.Radius = vg.Points(2)
	srcScatter.GlyphStyle.Shape = draw.CircleGlyph{}

	dstScatter, err := plotter.NewScatter(dst)
	if err != nil {
		return nil, fmt.Errorf("target scatter: %w", err)
	}
	dstScatter.GlyphStyle.Color = targetColor
	dstScatter.GlyphStyle.Radius = vg.Points(2)
	dstScatter.GlyphStyle.Shape = draw.TriangleGlyph{}

	lines := &segments{
		vs:    vs,
		style: draw.LineStyle{Color: vectorColor, Width: vg.Points(0.75)},
	}

	p.Add(lines, srcScatter, dstScatter)
	p.Legend.Add("frame A", srcScatter)
	p.Legend.Add("frame B", dstScatter)
	p.Legend.Top = true
	return p, nil
}

// PlotMatches saves the match plot to path. The format follows the file
// extension (.png, .svg, .pdf, ...).
func PlotMatches(path, title string, vs []ptv.Vector) error {
	p, err := NewMatchPlot(title, vs)
	if err != nil {
		return err
	}
	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
