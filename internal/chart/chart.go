// Package chart renders the run summary as a go-echarts line chart.
package chart

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/crimeatlas/crimes-grabber/internal/cde"
)

// Config selects what gets plotted.
type Config struct {
	State  string
	XField string
	Series []string
}

// Build assembles a multi-series line chart from state-level records. It
// errors when records are empty, the x field never appears, or any requested
// series field appears in no record; years missing a value render as gaps.
func Build(records []cde.Record, cfg Config) (*charts.Line, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no records to plot")
	}
	if len(cfg.Series) == 0 {
		return nil, fmt.Errorf("no series fields configured")
	}

	xs := distinctXValues(records, cfg.XField)
	if len(xs) == 0 {
		return nil, fmt.Errorf("x field %q not present in any record", cfg.XField)
	}
	labels := make([]string, len(xs))
	for i, x := range xs {
		labels[i] = x.label
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:     "1400px",
			Height:    "700px",
			PageTitle: fmt.Sprintf("%s Crime Statistics", cfg.State),
		}),
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("Plot of Crime Counts in %s by Type", cfg.State),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		// The legend sits outside the plot area; the grid reserves the right
		// margin for it.
		charts.WithLegendOpts(opts.Legend{
			Show:   opts.Bool(true),
			Orient: "vertical",
			Right:  "0",
			Top:    "middle",
		}),
		charts.WithGridOpts(opts.Grid{Right: "260px"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Year"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Crime Count"}),
	)
	line.SetXAxis(labels)

	palette := Palette(len(cfg.Series))
	for i, field := range cfg.Series {
		values := map[string]any{}
		present := false
		for _, rec := range records {
			v, ok := rec[field]
			if !ok {
				continue
			}
			present = true
			xv, ok := rec[cfg.XField]
			if v == nil || !ok || xv == nil {
				continue
			}
			values[toXValue(xv).label] = v
		}
		// A field no record carries fails the whole chart; a field that is
		// merely sparse renders with gaps.
		if !present {
			return nil, fmt.Errorf("series field %q not present in any record", field)
		}

		data := make([]opts.LineData, len(labels))
		for j, lbl := range labels {
			if v, ok := values[lbl]; ok {
				data[j] = opts.LineData{Value: v}
			} else {
				data[j] = opts.LineData{Value: "-"}
			}
		}
		line.AddSeries(field, data,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true), Symbol: "circle"}),
			charts.WithLineStyleOpts(opts.LineStyle{Color: palette[i]}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: palette[i]}),
		)
	}

	return line, nil
}

// Render writes the chart as a standalone HTML page.
func Render(w io.Writer, records []cde.Record, cfg Config) error {
	line, err := Build(records, cfg)
	if err != nil {
		return err
	}
	if err := line.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// Palette returns n hex colors spaced evenly around the hue wheel, a rainbow
// sized to the series count.
func Palette(n int) []string {
	if n <= 0 {
		return nil
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		r, g, b := hsvToRGB(float64(i)/float64(n), 0.85, 0.9)
		out[i] = fmt.Sprintf("#%02x%02x%02x", r, g, b)
	}
	return out
}

func hsvToRGB(h, s, v float64) (uint8, uint8, uint8) {
	i := int(h * 6)
	f := h*6 - float64(i)
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)

	var r, g, b float64
	switch i % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	case 5:
		r, g, b = v, p, q
	}
	return uint8(r * 255), uint8(g * 255), uint8(b * 255)
}

type xValue struct {
	num   float64
	label string
	isNum bool
}

func toXValue(v any) xValue {
	switch t := v.(type) {
	case float64:
		return xValue{num: t, label: strconv.FormatFloat(t, 'f', -1, 64), isNum: true}
	case string:
		return xValue{label: t}
	default:
		return xValue{label: fmt.Sprint(t)}
	}
}

// distinctXValues collects the unique x-axis values in sorted order, numeric
// when every value is numeric.
func distinctXValues(records []cde.Record, xField string) []xValue {
	seen := map[string]bool{}
	var xs []xValue
	for _, rec := range records {
		v, ok := rec[xField]
		if !ok || v == nil {
			continue
		}
		xv := toXValue(v)
		if !seen[xv.label] {
			seen[xv.label] = true
			xs = append(xs, xv)
		}
	}
	sort.Slice(xs, func(i, j int) bool {
		if xs[i].isNum && xs[j].isNum {
			return xs[i].num < xs[j].num
		}
		return xs[i].label < xs[j].label
	})
	return xs
}
