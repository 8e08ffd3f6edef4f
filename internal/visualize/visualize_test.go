package visualize

import "testing"

var sampleRows = []map[string]any{
	{"category": "a", "count": 1},
	{"category": "b", "count": 3},
}

func TestBuildEChartsOptionBarHasAxes(t *testing.T) {
	option, err := BuildEChartsOption(sampleRows, ChartSpec{Type: Bar, XField: "category", YField: "count", Title: "t"})
	if err != nil {
		t.Fatalf("BuildEChartsOption: %v", err)
	}
	if _, ok := option["xAxis"]; !ok {
		t.Error("expected xAxis for a bar chart")
	}
	if _, ok := option["yAxis"]; !ok {
		t.Error("expected yAxis for a bar chart")
	}
}

func TestBuildEChartsOptionPieHasNoAxes(t *testing.T) {
	option, err := BuildEChartsOption(sampleRows, ChartSpec{Type: Pie, XField: "category", YField: "count"})
	if err != nil {
		t.Fatalf("BuildEChartsOption: %v", err)
	}
	if _, ok := option["xAxis"]; ok {
		t.Error("pie charts must not carry a cartesian xAxis")
	}
	series, ok := option["series"].([]any)
	if !ok || len(series) != 1 {
		t.Fatalf("series = %v", option["series"])
	}
}

func TestBuildEChartsOptionDefaultsToBar(t *testing.T) {
	option, err := BuildEChartsOption(sampleRows, ChartSpec{XField: "category", YField: "count"})
	if err != nil {
		t.Fatalf("BuildEChartsOption: %v", err)
	}
	series := option["series"].([]any)[0].(map[string]any)
	if series["type"] != "bar" {
		t.Errorf("series type = %v, want bar default", series["type"])
	}
}

func TestBuildEChartsOptionRejectsMissingFields(t *testing.T) {
	if _, err := BuildEChartsOption(sampleRows, ChartSpec{XField: "category"}); err == nil {
		t.Fatal("expected validation error for missing YField")
	}
}

func TestBuildEChartsOptionRejectsEmptyRows(t *testing.T) {
	if _, err := BuildEChartsOption(nil, ChartSpec{XField: "category", YField: "count"}); err == nil {
		t.Fatal("expected validation error for zero rows")
	}
}

func TestBuildVegaLiteSpecPieUsesArcMark(t *testing.T) {
	spec, err := BuildVegaLiteSpec(sampleRows, ChartSpec{Type: Pie, XField: "category", YField: "count"})
	if err != nil {
		t.Fatalf("BuildVegaLiteSpec: %v", err)
	}
	if spec["mark"] != "arc" {
		t.Errorf("mark = %v, want arc", spec["mark"])
	}
}

func TestBuildCSVEncodesRowsInColumnOrder(t *testing.T) {
	out, err := BuildCSV(sampleRows, []string{"category", "count"})
	if err != nil {
		t.Fatalf("BuildCSV: %v", err)
	}
	want := "category,count\na,1\nb,3\n"
	if string(out) != want {
		t.Errorf("csv = %q, want %q", string(out), want)
	}
}

func TestFileTypeDistributionCountsAndSortsByExtension(t *testing.T) {
	dist := FileTypeDistribution([]string{"csv", "json", "csv", "csv"})
	if len(dist) != 2 {
		t.Fatalf("dist = %+v", dist)
	}
	if dist[0]["extension"] != "csv" || dist[0]["count"] != 3 {
		t.Errorf("first entry = %+v", dist[0])
	}
	if dist[1]["extension"] != "json" || dist[1]["count"] != 1 {
		t.Errorf("second entry = %+v", dist[1])
	}
}

func TestBuildDashboardBundlesCharts(t *testing.T) {
	dashboard, err := BuildDashboard([]ChartSpec{
		{Type: Bar, XField: "category", YField: "count", Title: "Counts"},
	}, sampleRows)
	if err != nil {
		t.Fatalf("BuildDashboard: %v", err)
	}
	charts, ok := dashboard["charts"].([]any)
	if !ok || len(charts) != 1 {
		t.Fatalf("charts = %v", dashboard["charts"])
	}
}
