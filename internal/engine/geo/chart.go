package geo

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// WriteChart renders places as a geo scatter page.
func WriteChart(w io.Writer, title string, places []Place) error {
	if len(places) == 0 {
		return fmt.Errorf("no located rows to plot")
	}

	data := make([]opts.GeoData, len(places))
	for i, p := range places {
		data[i] = opts.GeoData{Name: p.Name, Value: []float64{p.Point.Lon(), p.Point.Lat()}}
	}

	b, _ := Bounds(places)
	g := charts.NewGeo()
	g.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Width:     "1000px",
			Height:    "700px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("%d places, lat %.4f..%.4f, lng %.4f..%.4f", len(places), b.Min.Lat(), b.Max.Lat(), b.Min.Lon(), b.Max.Lon()),
		}),
		charts.WithGeoComponentOpts(opts.GeoComponent{
			Map:    "world",
			Silent: opts.Bool(true),
		}),
	)

	g.AddSeries("places", types.ChartScatter, data,
		charts.WithLabelOpts(opts.Label{
			Show:      opts.Bool(false),
			Formatter: "{b}",
		}),
	)

	if err := g.Render(w); err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}
	return nil
}
