package sink

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/urbanpulse/traffic-collector/internal/model"
)

func newTestSink(t *testing.T) *Sink {
	t.Helper()
	s, err := New(slog.New(slog.NewTextHandler(io.Discard, nil)), t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestWriteAndReadFeatureCollection(t *testing.T) {
	s := newTestSink(t)

	fc := geojson.NewFeatureCollection()
	f := geojson.NewFeature(orb.LineString{{27.58, 47.16}, {27.59, 47.17}})
	f.Properties = geojson.Properties{"layer": "Traffic flow", "tile_x": 18893}
	fc.Append(f)

	if err := s.WriteJSON(FlowGeoJSON, fc); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	got, err := s.ReadFeatureCollection(FlowGeoJSON)
	if err != nil {
		t.Fatalf("ReadFeatureCollection: %v", err)
	}
	if len(got.Features) != 1 {
		t.Fatalf("features = %d, want 1", len(got.Features))
	}
	ls, ok := got.Features[0].Geometry.(orb.LineString)
	if !ok || len(ls) != 2 {
		t.Fatalf("geometry = %v", got.Features[0].Geometry)
	}
	if got.Features[0].Properties["layer"] != "Traffic flow" {
		t.Fatalf("properties = %v", got.Features[0].Properties)
	}
}

func TestWriteNDJSON_OneCompactDocPerLine(t *testing.T) {
	s := newTestSink(t)

	records := []any{
		map[string]any{"layer": "Traffic flow", "traffic_level": 0.5},
		map[string]any{"layer": "Traffic flow", "traffic_level": 0.9},
	}
	if err := s.WriteNDJSON(FlowRecordsNDJSON, records); err != nil {
		t.Fatalf("WriteNDJSON: %v", err)
	}

	f, err := os.Open(s.Path(FlowRecordsNDJSON))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var lines int
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if strings.Contains(line, "\n") || !json.Valid([]byte(line)) {
			t.Fatalf("line %d not a compact JSON doc: %q", lines, line)
		}
		lines++
	}
	if lines != 2 {
		t.Fatalf("lines = %d, want 2", lines)
	}
}

func TestWriteRawJSON_ReindentsParseable(t *testing.T) {
	s := newTestSink(t)
	if err := s.WriteRawJSON(IncidentsRawJSON, []byte(`{"incidents":[{"id":1}]}`)); err != nil {
		t.Fatalf("WriteRawJSON: %v", err)
	}
	buf, err := os.ReadFile(s.Path(IncidentsRawJSON))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(buf), "\n") {
		t.Fatalf("expected indented output, got %q", buf)
	}

	// unparseable payload survives byte for byte
	raw := []byte("<html>502</html>")
	if err := s.WriteRawJSON("error_body.json", raw); err != nil {
		t.Fatalf("WriteRawJSON raw: %v", err)
	}
	buf, _ = os.ReadFile(s.Path("error_body.json"))
	if string(buf) != string(raw) {
		t.Fatalf("raw payload altered: %q", buf)
	}
}

func TestWriteSummary_ListsFilesWithSizes(t *testing.T) {
	s := newTestSink(t)
	if err := s.WriteJSON("a.json", map[string]int{"n": 1}); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := s.WriteNDJSON("b.ndjson", []any{map[string]int{"n": 2}}); err != nil {
		t.Fatalf("write b: %v", err)
	}

	bbox := model.BBox{MinLat: 47.10, MinLon: 27.52, MaxLat: 47.22, MaxLon: 27.66}
	sum, err := s.WriteSummary("Iasi, Romania", bbox, time.Date(2025, 11, 7, 14, 35, 22, 0, time.UTC))
	if err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}
	if len(sum.FilesCollected) != 2 {
		t.Fatalf("files = %d, want 2 (summary itself written after listing)", len(sum.FilesCollected))
	}
	for _, f := range sum.FilesCollected {
		if f.SizeBytes <= 0 {
			t.Fatalf("file %s has size %d", f.Filename, f.SizeBytes)
		}
	}
	if sum.BoundingBox.MinLat != 47.10 {
		t.Fatalf("bbox = %+v", sum.BoundingBox)
	}
	if _, err := os.Stat(s.Path(SummaryJSON)); err != nil {
		t.Fatalf("summary document missing: %v", err)
	}
}

func TestFlowDataNames_EmbedRunTimestamp(t *testing.T) {
	ts := time.Date(2025, 11, 7, 14, 35, 22, 0, time.UTC)
	nd, js, md := FlowDataNames(ts)
	if nd != "tomtom_raw_flow_data_20251107_143522.ndjson" {
		t.Fatalf("ndjson name = %q", nd)
	}
	if js != "tomtom_raw_flow_data_20251107_143522.json" {
		t.Fatalf("json name = %q", js)
	}
	if md != "tomtom_raw_flow_metadata_20251107_143522.json" {
		t.Fatalf("metadata name = %q", md)
	}
}

func TestNewRunMetadata(t *testing.T) {
	ts := time.Date(2025, 11, 7, 14, 35, 22, 0, time.UTC)
	md := NewRunMetadata(ts, 42, FlowGeoJSON)
	if md.ExecutionDate != "2025-11-07" || md.ExecutionTime != "14:35:22" {
		t.Fatalf("metadata times = %q %q", md.ExecutionDate, md.ExecutionTime)
	}
	if md.TotalRecords != 42 {
		t.Fatalf("total = %d", md.TotalRecords)
	}
	if md.OutputFiles["ndjson"] == "" || md.OutputFiles["json"] == "" || md.OutputFiles["metadata"] == "" {
		t.Fatalf("output files incomplete: %v", md.OutputFiles)
	}
}
