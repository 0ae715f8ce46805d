// Package sink writes collection outputs to the run's output directory:
// GeoJSON feature collections, NDJSON record streams, raw provider documents
// and the run summary.
package sink

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/urbanpulse/traffic-collector/internal/model"
)

// Fixed output names. Reruns overwrite prior output; there is no versioning.
const (
	FlowGeoJSON       = "traffic_flow_tiles.geojson"
	FlowRecordsNDJSON = "traffic_flow_records.ndjson"
	IncidentsRawJSON  = "traffic_incidents_raw.json"
	IncidentsGeoJSON  = "traffic_incidents.geojson"
	IncidentsNDJSON   = "traffic_incidents_records.ndjson"
	SummaryJSON       = "collection_summary.json"
)

// runStampLayout names sampler outputs per run, e.g. 20251107_143522.
const runStampLayout = "20060102_150405"

// FlowDataNames returns the timestamped sampler output names.
func FlowDataNames(ts time.Time) (ndjson, jsonArray, metadata string) {
	stamp := ts.Format(runStampLayout)
	return fmt.Sprintf("tomtom_raw_flow_data_%s.ndjson", stamp),
		fmt.Sprintf("tomtom_raw_flow_data_%s.json", stamp),
		fmt.Sprintf("tomtom_raw_flow_metadata_%s.json", stamp)
}

type Sink struct {
	logger *slog.Logger
	dir    string
}

// New creates the output directory if missing.
func New(logger *slog.Logger, dir string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Sink{logger: logger, dir: dir}, nil
}

func (s *Sink) Dir() string { return s.dir }

func (s *Sink) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// WriteJSON writes v indented, matching the original document layout.
func (s *Sink) WriteJSON(name string, v any) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	return s.writeFile(name, append(buf, '\n'))
}

// WriteRawJSON persists a provider document as received, reindented when it
// parses; an unparseable payload is written byte for byte.
func (s *Sink) WriteRawJSON(name string, raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err == nil {
		return s.WriteJSON(name, v)
	}
	return s.writeFile(name, raw)
}

// WriteNDJSON writes one compact JSON document per line.
func (s *Sink) WriteNDJSON(name string, records []any) error {
	f, err := os.Create(s.Path(name))
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode %s record: %w", name, err)
		}
	}
	return nil
}

// ReadFeatureCollection loads a previously written GeoJSON document.
func (s *Sink) ReadFeatureCollection(name string) (*geojson.FeatureCollection, error) {
	buf, err := os.ReadFile(s.Path(name))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(buf)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return fc, nil
}

func (s *Sink) writeFile(name string, buf []byte) error {
	if err := os.WriteFile(s.Path(name), buf, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	s.logger.Debug("wrote output", "file", name, "bytes", len(buf))
	return nil
}

type SummaryFile struct {
	Filename  string  `json:"filename"`
	SizeBytes int64   `json:"size_bytes"`
	SizeMB    float64 `json:"size_mb"`
}

type SummaryBBox struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

type Summary struct {
	CollectionTime string        `json:"collection_time"`
	Location       string        `json:"location"`
	BoundingBox    SummaryBBox   `json:"bounding_box"`
	FilesCollected []SummaryFile `json:"files_collected"`
}

// WriteSummary lists every file in the output directory with its byte size
// and persists the summary document.
func (s *Sink) WriteSummary(location string, bbox model.BBox, now time.Time) (Summary, error) {
	summary := Summary{
		CollectionTime: now.Format(time.RFC3339),
		Location:       location,
		BoundingBox: SummaryBBox{
			MinLat: bbox.MinLat,
			MinLon: bbox.MinLon,
			MaxLat: bbox.MaxLat,
			MaxLon: bbox.MaxLon,
		},
		FilesCollected: []SummaryFile{},
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return summary, fmt.Errorf("read output dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		summary.FilesCollected = append(summary.FilesCollected, SummaryFile{
			Filename:  e.Name(),
			SizeBytes: info.Size(),
			SizeMB:    math.Round(float64(info.Size())/(1024*1024)*100) / 100,
		})
	}

	if err := s.WriteJSON(SummaryJSON, summary); err != nil {
		return summary, err
	}
	return summary, nil
}

// RunMetadata describes one sampler run and the files it produced.
type RunMetadata struct {
	ExecutionDate        string            `json:"execution_date"`
	ExecutionTime        string            `json:"execution_time"`
	ExecutionDatetimeISO string            `json:"execution_datetime_iso"`
	TotalRecords         int               `json:"total_records"`
	InputFile            string            `json:"input_file"`
	OutputFiles          map[string]string `json:"output_files"`
}

// NewRunMetadata builds the metadata document for a sampler run.
func NewRunMetadata(ts time.Time, totalRecords int, inputFile string) RunMetadata {
	ndjson, jsonArray, metadata := FlowDataNames(ts)
	return RunMetadata{
		ExecutionDate:        ts.Format("2006-01-02"),
		ExecutionTime:        ts.Format("15:04:05"),
		ExecutionDatetimeISO: ts.Format(time.RFC3339),
		TotalRecords:         totalRecords,
		InputFile:            inputFile,
		OutputFiles: map[string]string{
			"ndjson":   ndjson,
			"json":     jsonArray,
			"metadata": metadata,
		},
	}
}
