// Package visualize builds chart-spec JSON and CSV companions from tabular
// data, grounded on original_source's tools/package_visualization.py and
// tools/data_visualization.py. Per spec.md §1, rendering pixels is out of
// scope; this package only produces the ECharts/Vega-Lite option dicts the
// real renderer (an external collaborator) would consume, plus an optional
// CSV encoding of the same rows.
package visualize

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"

	"github.com/quiltdata/quilt-mcp-server/internal/apperr"
)

// ChartType is one of the chart shapes package_visualization.py emits.
type ChartType string

const (
	Bar     ChartType = "bar"
	Line    ChartType = "line"
	Scatter ChartType = "scatter"
	Pie     ChartType = "pie"
)

// ChartSpec is the caller-supplied description of what to plot.
type ChartSpec struct {
	Type   ChartType
	Title  string
	XField string
	YField string
}

// BuildEChartsOption builds an ECharts `option` dict for rows, following
// tools/data_visualization.py's axis/series shape: a categorical x-axis of
// XField values and a single series of YField values.
func BuildEChartsOption(rows []map[string]any, spec ChartSpec) (map[string]any, error) {
	if err := validateFields(rows, spec); err != nil {
		return nil, err
	}

	categories := make([]any, 0, len(rows))
	values := make([]any, 0, len(rows))
	for _, row := range rows {
		categories = append(categories, row[spec.XField])
		values = append(values, row[spec.YField])
	}

	seriesType := string(spec.Type)
	if spec.Type == "" {
		seriesType = string(Bar)
	}

	option := map[string]any{
		"title":   map[string]any{"text": spec.Title},
		"tooltip": map[string]any{"trigger": "axis"},
		"series":  []any{map[string]any{"type": seriesType, "data": values, "name": spec.YField}},
	}
	if spec.Type != Pie {
		option["xAxis"] = map[string]any{"type": "category", "data": categories, "name": spec.XField}
		option["yAxis"] = map[string]any{"type": "value", "name": spec.YField}
	} else {
		pieData := make([]any, 0, len(rows))
		for i, row := range rows {
			pieData = append(pieData, map[string]any{"name": fmt.Sprint(row[spec.XField]), "value": values[i]})
		}
		option["series"] = []any{map[string]any{"type": "pie", "data": pieData, "name": spec.Title}}
	}
	return option, nil
}

// BuildVegaLiteSpec builds a minimal Vega-Lite spec for the same inputs,
// the alternate chart-spec shape tools/data_visualization.py supports
// alongside ECharts.
func BuildVegaLiteSpec(rows []map[string]any, spec ChartSpec) (map[string]any, error) {
	if err := validateFields(rows, spec); err != nil {
		return nil, err
	}

	mark := string(spec.Type)
	if spec.Type == "" || spec.Type == Pie {
		mark = "arc"
	}

	return map[string]any{
		"$schema": "https://vega.github.io/schema/vega-lite/v5.json",
		"title":   spec.Title,
		"data":    map[string]any{"values": rows},
		"mark":    mark,
		"encoding": map[string]any{
			"x": map[string]any{"field": spec.XField, "type": "nominal"},
			"y": map[string]any{"field": spec.YField, "type": "quantitative"},
		},
	}, nil
}

func validateFields(rows []map[string]any, spec ChartSpec) error {
	if spec.XField == "" || spec.YField == "" {
		return apperr.Validationf("chart spec requires both XField and YField")
	}
	if len(rows) == 0 {
		return apperr.Validationf("cannot build a chart from zero rows")
	}
	return nil
}

// BuildCSV encodes rows under the given column order as CSV bytes, the
// "optional CSV companion" of spec.md §4.5 step 8.
func BuildCSV(rows []map[string]any, columns []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(columns); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to write CSV header", err)
	}
	for _, row := range rows {
		record := make([]string, len(columns))
		for i, col := range columns {
			record[i] = fmt.Sprint(row[col])
		}
		if err := w.Write(record); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "failed to write CSV row", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to flush CSV writer", err)
	}
	return buf.Bytes(), nil
}

// BuildDashboard bundles several charts behind one quilt_summarize.json
// "visualizations" block, per original_source's dashboard-config hook.
func BuildDashboard(charts []ChartSpec, rows []map[string]any) (map[string]any, error) {
	entries := make([]any, 0, len(charts))
	for _, spec := range charts {
		option, err := BuildEChartsOption(rows, spec)
		if err != nil {
			return nil, err
		}
		entries = append(entries, map[string]any{"title": spec.Title, "echarts": option})
	}
	return map[string]any{"charts": entries}, nil
}

// FileTypeDistribution counts files per lowercase extension, used by
// internal/packaging's quilt_summarize.json generation.
func FileTypeDistribution(extensions []string) []map[string]any {
	counts := make(map[string]int, len(extensions))
	for _, ext := range extensions {
		counts[ext]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, map[string]any{"extension": k, "count": counts[k]})
	}
	return out
}
