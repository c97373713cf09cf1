// Package ingest reads canonical flow-record batches from NDJSON files,
// one file per vantage point. It is the input boundary toward the
// capture collaborator: records arrive already parsed from packets, and
// a line that cannot be decoded is reported as an explicit unparseable
// outcome for the caller to count, never silently skipped.
package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cvalentine99/flowlens/internal/models"
)

// ParseRecord decodes a single NDJSON line into a FlowRecord. The error
// is the explicit "unparseable" outcome; callers decide whether to drop
// or count it.
func ParseRecord(line []byte) (models.FlowRecord, error) {
	var rec models.FlowRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return models.FlowRecord{}, fmt.Errorf("ingest: unparseable record: %w", err)
	}
	if rec.Timestamp < 0 {
		return models.FlowRecord{}, fmt.Errorf("ingest: unparseable record: negative timestamp %v", rec.Timestamp)
	}
	return rec, nil
}

// ReadBatch reads all records from r, returning the parsed records and
// the number of unparseable lines that were dropped. Blank lines are
// ignored.
func ReadBatch(r io.Reader) ([]models.FlowRecord, int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var records []models.FlowRecord
	dropped := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rec, err := ParseRecord([]byte(line))
		if err != nil {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, dropped, fmt.Errorf("ingest: read batch: %w", err)
	}
	return records, dropped, nil
}

// ReadDir reads one <vantage>.ndjson batch per requested vantage point
// from dir. A missing file yields an empty batch for that vantage point
// rather than an error; the pipeline treats empty batches as zero
// feature-vector contributions.
func ReadDir(dir string, vantagePoints []string) (map[string][]models.FlowRecord, map[string]int, error) {
	batches := make(map[string][]models.FlowRecord, len(vantagePoints))
	droppedCounts := make(map[string]int, len(vantagePoints))

	for _, vp := range vantagePoints {
		path := filepath.Join(dir, vp+".ndjson")
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				batches[vp] = nil
				continue
			}
			return nil, nil, fmt.Errorf("ingest: open %s: %w", path, err)
		}

		records, dropped, err := ReadBatch(f)
		f.Close()
		if err != nil {
			return nil, nil, err
		}
		batches[vp] = records
		droppedCounts[vp] = dropped
	}
	return batches, droppedCounts, nil
}
