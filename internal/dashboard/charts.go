package dashboard

import (
	"html/template"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/render"

	"github.com/Skufu/healthrec/internal/analytics"
	"github.com/Skufu/healthrec/internal/store"
)

// Snippet is one rendered chart: its container div and its init script.
type Snippet struct {
	ID      string
	Element template.HTML
	Script  template.HTML
}

// chartLabel escapes user supplied text. go-echarts writes series data into
// the page script without HTML escaping.
func chartLabel(s string) string {
	return template.HTMLEscapeString(s)
}

func chartSize(id string) opts.Initialization {
	return opts.Initialization{ChartID: id, Width: "560px", Height: "380px"}
}

func countBar(id, title string, counts []store.Count) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(chartSize(id)),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: 30, Interval: "0"}}),
	)

	labels := make([]string, len(counts))
	data := make([]opts.BarData, len(counts))
	for i, c := range counts {
		labels[i] = chartLabel(c.Label)
		data[i] = opts.BarData{Name: labels[i], Value: c.Total}
	}
	bar.SetXAxis(labels).AddSeries("count", data)
	return bar
}

// countPie draws a pie, or a donut when donut is set.
func countPie(id, title string, counts []store.Count, donut bool) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(chartSize(id)),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Bottom: "0"}),
	)

	data := make([]opts.PieData, len(counts))
	for i, c := range counts {
		data[i] = opts.PieData{Name: chartLabel(c.Label), Value: c.Total}
	}
	shape := charts.WithPieChartOpts(opts.PieChart{Radius: "70%"})
	if donut {
		shape = charts.WithPieChartOpts(opts.PieChart{Radius: []string{"40%", "70%"}})
	}
	pie.AddSeries(title, data, shape, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {c}"}))
	return pie
}

func wordCloud(id string, words []analytics.WordCount) *charts.WordCloud {
	wc := charts.NewWordCloud()
	wc.SetGlobalOptions(
		charts.WithInitializationOpts(chartSize(id)),
		charts.WithTitleOpts(opts.Title{Title: "Feedback words"}),
	)

	data := make([]opts.WordCloudData, len(words))
	for i, w := range words {
		data[i] = opts.WordCloudData{Name: chartLabel(w.Word), Value: w.Count}
	}
	wc.AddSeries("words", data, charts.WithWorldCloudChartOpts(opts.WordCloudChart{
		Shape:     "circle",
		SizeRange: []float32{14, 60},
	}))
	return wc
}

type namedChart struct {
	id string
	r  render.Renderer
}

// buildCharts renders every analytics chart. Sections with no data are
// skipped; the page says so instead.
func buildCharts(r *analytics.GlobalReport) []Snippet {
	var pending []namedChart
	if len(r.TopDiseases) > 0 {
		pending = append(pending, namedChart{"top_diseases", countBar("top_diseases", "Top diseases", r.TopDiseases)})
	}
	if len(r.TopDrugs) > 0 {
		pending = append(pending, namedChart{"top_drugs", countBar("top_drugs", "Top drugs", r.TopDrugs)})
	}
	if len(r.Sentiment) > 0 {
		pending = append(pending, namedChart{"sentiment", countPie("sentiment", "Feedback sentiment", r.Sentiment, false)})
	}
	if len(r.Roles) > 0 {
		pending = append(pending, namedChart{"roles", countPie("roles", "User roles", r.Roles, true)})
	}
	if len(r.Words) > 0 {
		pending = append(pending, namedChart{"words", wordCloud("words", r.Words)})
	}

	out := make([]Snippet, len(pending))
	for i, c := range pending {
		s := c.r.RenderSnippet()
		out[i] = Snippet{
			ID:      c.id,
			Element: template.HTML(s.Element), //nolint:gosec // generated by go-echarts
			Script:  template.HTML(s.Script),  //nolint:gosec // generated by go-echarts
		}
	}
	return out
}
