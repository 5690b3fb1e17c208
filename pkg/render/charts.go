package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/boristopalov/irrigation/pkg/core"
)

const chartTheme = "shine"

// WriteOverview renders the simulation overview page: soil moisture, irrigation
// action, reward and plant type per step.
func WriteOverview(w io.Writer, h *History) error {
	if h == nil || h.Len() == 0 {
		return fmt.Errorf("no steps to plot")
	}
	steps := axis(h.Len())

	page := components.NewPage()
	page.PageTitle = "Smart Irrigation Simulation Overview"
	page.AddCharts(
		lineChart("Soil Moisture", "Moisture (%)", steps, "Soil Moisture (%)", h.Moisture),
		lineChart("Irrigation Action", "Action", steps, "Irrigation Action", toFloats(h.Actions),
			charts.WithLineChartOpts(opts.LineChart{Step: "end"})),
		lineChart("Reward", "Reward", steps, "Reward", h.Rewards),
		lineChart("Plant Type", "Plant Type", steps, "Plant Type", toFloats(h.Plants)),
	)
	return page.Render(w)
}

// WriteTrainingProgress renders total reward per training episode
func WriteTrainingProgress(w io.Writer, summaries []core.EpisodeSummary) error {
	if len(summaries) == 0 {
		return fmt.Errorf("no episodes to plot")
	}

	episodes := make([]string, len(summaries))
	rewards := make([]float64, len(summaries))
	for i, s := range summaries {
		episodes[i] = strconv.Itoa(s.Episode)
		rewards[i] = s.TotalReward
	}

	page := components.NewPage()
	page.PageTitle = "Training Progress"
	page.AddCharts(lineChart("Training Progress", "Reward", episodes, "Episode Reward", rewards))
	return page.Render(w)
}

func lineChart(title, yName string, x []string, series string, values []float64, seriesOpts ...charts.SeriesOpts) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: title,
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: chartTheme,
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: yName,
		}),
	)

	items := make([]opts.LineData, 0, len(values))
	for _, v := range values {
		items = append(items, opts.LineData{Value: v})
	}
	line.SetXAxis(x).AddSeries(series, items, seriesOpts...)
	return line
}

func axis(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa(i)
	}
	return out
}

func toFloats(v []int) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
