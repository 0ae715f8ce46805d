package sampler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type fakeSource struct {
	calls    []orb.Point // lon, lat as queried (stored lat in [1])
	response []byte
	failAt   int // 1-based call index to fail, 0 = never
}

func (f *fakeSource) FlowSegment(_ context.Context, lat, lon float64) ([]byte, error) {
	f.calls = append(f.calls, orb.Point{lon, lat})
	if f.failAt == len(f.calls) {
		return nil, errors.New("rate limited")
	}
	return f.response, nil
}

func newTestSampler(src PointSource, cfg Config) *Sampler {
	s := New(slog.New(slog.NewTextHandler(io.Discard, nil)), src, cfg)
	s.sleep = func(time.Duration) {}
	return s
}

func lineFeature(points ...orb.Point) *geojson.Feature {
	return geojson.NewFeature(orb.LineString(points))
}

func TestMidpointOf_LineString(t *testing.T) {
	// geometry stores lon/lat; the query point comes back lat/lon
	ls := orb.LineString{{27.58, 47.16}, {27.59, 47.17}, {27.60, 47.18}}
	lat, lon, ok := MidpointOf(ls)
	if !ok {
		t.Fatalf("expected ok")
	}
	if lat != 47.17 || lon != 27.59 {
		t.Fatalf("midpoint = (%v,%v), want (47.17,27.59)", lat, lon)
	}
}

func TestMidpointOf_EvenLengthTakesUpperMiddle(t *testing.T) {
	ls := orb.LineString{{1, 1}, {2, 2}, {3, 3}, {4, 4}}
	lat, lon, ok := MidpointOf(ls)
	if !ok || lat != 3 || lon != 3 {
		t.Fatalf("midpoint = (%v,%v), want (3,3)", lat, lon)
	}
}

func TestMidpointOf_MultiLineStringUsesFirstLine(t *testing.T) {
	mls := orb.MultiLineString{
		{{27.58, 47.16}, {27.59, 47.17}, {27.60, 47.18}},
		{{1, 1}, {2, 2}},
	}
	lat, lon, ok := MidpointOf(mls)
	if !ok || lat != 47.17 || lon != 27.59 {
		t.Fatalf("midpoint = (%v,%v), want (47.17,27.59)", lat, lon)
	}
}

func TestMidpointOf_PointAndDegenerate(t *testing.T) {
	lat, lon, ok := MidpointOf(orb.Point{27.55, 47.12})
	if !ok || lat != 47.12 || lon != 27.55 {
		t.Fatalf("point midpoint = (%v,%v)", lat, lon)
	}
	if _, _, ok := MidpointOf(orb.LineString{}); ok {
		t.Fatalf("empty line must not produce a midpoint")
	}
	if _, _, ok := MidpointOf(orb.MultiLineString{}); ok {
		t.Fatalf("empty multiline must not produce a midpoint")
	}
	if _, _, ok := MidpointOf(orb.Polygon{}); ok {
		t.Fatalf("polygon is not a sampleable street geometry")
	}
}

func TestRun_RecordsCarryRawResponse(t *testing.T) {
	src := &fakeSource{response: []byte(`{"flowSegmentData":{"currentSpeed":37,"freeFlowSpeed":50}}`)}
	s := newTestSampler(src, Config{})

	features := []*geojson.Feature{
		lineFeature(orb.Point{27.58, 47.16}, orb.Point{27.59, 47.17}, orb.Point{27.60, 47.18}),
	}
	records := s.Run(context.Background(), features)
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	r := records[0]
	if r.QueryLat != 47.17 || r.QueryLon != 27.59 {
		t.Fatalf("query point = (%v,%v)", r.QueryLat, r.QueryLon)
	}
	if string(r.RawResponse) != string(src.response) {
		t.Fatalf("raw response not preserved: %s", r.RawResponse)
	}
	if _, err := time.Parse(time.RFC3339, r.QueryTimestamp); err != nil {
		t.Fatalf("timestamp not RFC3339: %v", err)
	}
}

func TestRun_PerFeatureFailureIsIndependent(t *testing.T) {
	src := &fakeSource{response: []byte(`{}`), failAt: 2}
	s := newTestSampler(src, Config{})

	features := []*geojson.Feature{
		lineFeature(orb.Point{1, 1}),
		lineFeature(orb.Point{2, 2}),
		lineFeature(orb.Point{3, 3}),
	}
	records := s.Run(context.Background(), features)
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2 (middle failure skipped)", len(records))
	}
	if len(src.calls) != 3 {
		t.Fatalf("calls = %d, want all 3 attempted", len(src.calls))
	}
}

func TestRun_MaxSamplesBoundsThePrefix(t *testing.T) {
	src := &fakeSource{response: []byte(`{}`)}
	s := newTestSampler(src, Config{MaxSamples: 2})

	features := []*geojson.Feature{
		lineFeature(orb.Point{1, 1}),
		lineFeature(orb.Point{2, 2}),
		lineFeature(orb.Point{3, 3}),
		lineFeature(orb.Point{4, 4}),
	}
	records := s.Run(context.Background(), features)
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if src.calls[0] != (orb.Point{1, 1}) || src.calls[1] != (orb.Point{2, 2}) {
		t.Fatalf("expected the first two features to be sampled: %v", src.calls)
	}
}

func TestRun_UnsampleableGeometrySkippedWithoutQuery(t *testing.T) {
	src := &fakeSource{response: []byte(`{}`)}
	s := newTestSampler(src, Config{})

	features := []*geojson.Feature{
		geojson.NewFeature(orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}),
		lineFeature(orb.Point{5, 5}),
	}
	records := s.Run(context.Background(), features)
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if len(src.calls) != 1 {
		t.Fatalf("calls = %d, want 1 (polygon never queried)", len(src.calls))
	}
}
