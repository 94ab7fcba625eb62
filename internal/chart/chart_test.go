package chart

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"github.com/crimeatlas/crimes-grabber/internal/cde"
)

func stateRecords() []cde.Record {
	return []cde.Record{
		{"data_year": float64(2021), "Rape": float64(9), "Aggravated Assault": float64(40)},
		{"data_year": float64(2019), "Rape": float64(12), "Aggravated Assault": float64(35)},
		{"data_year": float64(2020), "Rape": float64(11)},
	}
}

func testConfig() Config {
	return Config{
		State:  "CO",
		XField: "data_year",
		Series: []string{"Rape", "Aggravated Assault"},
	}
}

func TestBuildEmptyRecords(t *testing.T) {
	t.Parallel()

	if _, err := Build(nil, testConfig()); err == nil {
		t.Fatal("expected error for empty records")
	}
}

func TestBuildMissingXField(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.XField = "no_such_field"
	if _, err := Build(stateRecords(), cfg); err == nil {
		t.Fatal("expected error for absent x field")
	}
}

func TestBuildAllSeriesMissing(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Series = []string{"Arson", "Embezzlement"}
	if _, err := Build(stateRecords(), cfg); err == nil {
		t.Fatal("expected error when no series field is present")
	}
}

func TestRenderContainsSeriesAndSortedYears(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Render(&buf, stateRecords(), testConfig()); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	html := buf.String()

	for _, want := range []string{"Rape", "Aggravated Assault", "Plot of Crime Counts in CO by Type"} {
		if !strings.Contains(html, want) {
			t.Fatalf("rendered chart missing %q", want)
		}
	}
	if !strings.Contains(html, `["2019","2020","2021"]`) {
		t.Fatal("expected x axis years sorted ascending")
	}
	// 2020 has no Aggravated Assault value: it must render as a gap.
	if !strings.Contains(html, `"value":"-"`) {
		t.Fatal("expected missing year value to render as a gap")
	}
}

func TestBuildAbsentSeriesFailsWholeChart(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Series = []string{"Rape", "Larceny"}

	_, err := Build(stateRecords(), cfg)
	if err == nil {
		t.Fatal("expected error when a requested series is absent")
	}
	if !strings.Contains(err.Error(), "Larceny") {
		t.Fatalf("error %q does not name the absent series", err)
	}
}

func TestBuildSparseSeriesRendersGaps(t *testing.T) {
	t.Parallel()

	records := []cde.Record{
		{"data_year": float64(2019), "Rape": float64(12)},
		{"data_year": float64(2020), "Rape": nil},
	}
	cfg := testConfig()
	cfg.Series = []string{"Rape"}

	var buf bytes.Buffer
	if err := Render(&buf, records, cfg); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"value":"-"`) {
		t.Fatal("expected null series value to render as a gap")
	}
}

func TestPalette(t *testing.T) {
	t.Parallel()

	hex := regexp.MustCompile(`^#[0-9a-f]{6}$`)
	for _, n := range []int{1, 2, 7, 12} {
		colors := Palette(n)
		if len(colors) != n {
			t.Fatalf("Palette(%d) returned %d colors", n, len(colors))
		}
		seen := map[string]bool{}
		for _, c := range colors {
			if !hex.MatchString(c) {
				t.Fatalf("Palette(%d) produced malformed color %q", n, c)
			}
			if seen[c] {
				t.Fatalf("Palette(%d) repeated color %q", n, c)
			}
			seen[c] = true
		}
	}
	if Palette(0) != nil {
		t.Fatal("Palette(0) must be nil")
	}
}
