package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseRecord_Valid(t *testing.T) {
	line := `{"timestamp": 1717430000.25, "src_addr": "10.0.0.1", "dst_addr": "10.0.0.2", "src_port": 443, "protocol": "TCP", "length": 1500}`

	rec, err := ParseRecord([]byte(line))
	if err != nil {
		t.Fatalf("ParseRecord failed: %v", err)
	}
	if rec.Timestamp != 1717430000.25 {
		t.Errorf("Timestamp %v, want 1717430000.25", rec.Timestamp)
	}
	if rec.SrcAddr == nil || *rec.SrcAddr != "10.0.0.1" {
		t.Errorf("SrcAddr %v, want 10.0.0.1", rec.SrcAddr)
	}
	if rec.SrcPort == nil || *rec.SrcPort != 443 {
		t.Errorf("SrcPort %v, want 443", rec.SrcPort)
	}
	if rec.DstPort != nil {
		t.Errorf("Expected nil DstPort for an absent field, got %v", *rec.DstPort)
	}
	if rec.Length != 1500 {
		t.Errorf("Length %d, want 1500", rec.Length)
	}
}

func TestParseRecord_MissingFieldsStayNil(t *testing.T) {
	rec, err := ParseRecord([]byte(`{"timestamp": 5, "length": 64}`))
	if err != nil {
		t.Fatalf("ParseRecord failed: %v", err)
	}
	if rec.SrcAddr != nil || rec.DstAddr != nil || rec.Protocol != nil {
		t.Error("Expected absent optional fields to stay nil")
	}
}

func TestParseRecord_Invalid(t *testing.T) {
	cases := []struct {
		name string
		line string
	}{
		{"malformed json", `{"timestamp": `},
		{"negative timestamp", `{"timestamp": -1, "length": 10}`},
		{"wrong type", `{"timestamp": "yesterday"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseRecord([]byte(tc.line)); err == nil {
				t.Errorf("Expected error for %q", tc.line)
			}
		})
	}
}

func TestReadBatch_CountsDrops(t *testing.T) {
	input := strings.Join([]string{
		`{"timestamp": 1, "length": 100}`,
		``,
		`not json`,
		`{"timestamp": 2, "length": 200}`,
		`{"timestamp": -3, "length": 300}`,
		`   `,
	}, "\n")

	records, dropped, err := ReadBatch(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadBatch failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if dropped != 2 {
		t.Errorf("Expected 2 dropped lines, got %d", dropped)
	}
	if records[0].Timestamp != 1 || records[1].Timestamp != 2 {
		t.Errorf("Records out of order: %v", records)
	}
}

func TestReadBatch_Empty(t *testing.T) {
	records, dropped, err := ReadBatch(strings.NewReader(""))
	if err != nil {
		t.Fatalf("ReadBatch failed: %v", err)
	}
	if len(records) != 0 || dropped != 0 {
		t.Errorf("Expected no records and no drops, got %d/%d", len(records), dropped)
	}
}

func TestReadDir(t *testing.T) {
	dir := t.TempDir()
	edge := `{"timestamp": 1, "length": 100}` + "\n" + `{"timestamp": 2, "length": 200}` + "\n"
	core := `{"timestamp": 1, "length": 50}` + "\n" + `garbage` + "\n"
	if err := os.WriteFile(filepath.Join(dir, "edge-1.ndjson"), []byte(edge), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "core-1.ndjson"), []byte(core), 0o644); err != nil {
		t.Fatal(err)
	}

	batches, dropped, err := ReadDir(dir, []string{"edge-1", "core-1", "absent"})
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(batches["edge-1"]) != 2 {
		t.Errorf("edge-1: expected 2 records, got %d", len(batches["edge-1"]))
	}
	if len(batches["core-1"]) != 1 || dropped["core-1"] != 1 {
		t.Errorf("core-1: expected 1 record and 1 drop, got %d/%d",
			len(batches["core-1"]), dropped["core-1"])
	}
	if records, ok := batches["absent"]; !ok || len(records) != 0 {
		t.Errorf("absent: expected an empty batch entry, got %v (present=%v)", records, ok)
	}
}
