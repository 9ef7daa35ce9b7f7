package macro

import "testing"

func TestDecodeRecordDefaults(t *testing.T) {
	record, err := DecodeRecord([]byte(`{}`))
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v", err)
	}
	if record.Name != "Action" {
		t.Fatalf("Name = %q, want Action", record.Name)
	}
	if record.Mode != ModeSingle || record.Button != ButtonLeft {
		t.Fatalf("mode/button = %q/%q, want Single/left", record.Mode, record.Button)
	}
	if record.DelayMs != 100 || record.BurstCount != 5 || !record.Enabled {
		t.Fatalf("unexpected defaults: %#v", record)
	}
	if len(record.Coordinates) != 1 || record.Coordinates[0] != (Point{}) {
		t.Fatalf("Coordinates = %#v, want [(0,0)]", record.Coordinates)
	}
}

func TestDecodeRecordFields(t *testing.T) {
	raw := `{
		"name": "Buy",
		"hotkey": "ctrl+shift+b",
		"coords": [{"x": 10, "y": 20}, {"x": 30}, {"y": "oops"}],
		"mode": "burst",
		"burst_count": "3",
		"delay_ms": -5,
		"button": "Right",
		"enabled": false
	}`
	record, err := DecodeRecord([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v", err)
	}

	want := []Point{{X: 10, Y: 20}, {X: 30, Y: 0}, {X: 0, Y: 0}}
	if len(record.Coordinates) != len(want) {
		t.Fatalf("Coordinates = %#v, want %#v", record.Coordinates, want)
	}
	for i := range want {
		if record.Coordinates[i] != want[i] {
			t.Fatalf("Coordinates[%d] = %#v, want %#v", i, record.Coordinates[i], want[i])
		}
	}
	if record.Name != "Buy" || record.Hotkey != "ctrl+shift+b" {
		t.Fatalf("name/hotkey = %q/%q", record.Name, record.Hotkey)
	}
	if record.Mode != ModeBurst || record.BurstCount != 3 {
		t.Fatalf("mode/burst = %q/%d", record.Mode, record.BurstCount)
	}
	if record.DelayMs != 0 {
		t.Fatalf("DelayMs = %d, want clamp to 0", record.DelayMs)
	}
	if record.Button != ButtonRight || record.Enabled {
		t.Fatalf("button/enabled = %q/%v", record.Button, record.Enabled)
	}
}

func TestDecodeRecordClampsBurst(t *testing.T) {
	record, err := DecodeRecord([]byte(`{"mode":"Burst","burst_count":0}`))
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v", err)
	}
	if record.BurstCount != 1 {
		t.Fatalf("BurstCount = %d, want 1", record.BurstCount)
	}
	if got := record.ClicksPerStep(); got != 1 {
		t.Fatalf("ClicksPerStep() = %d, want 1", got)
	}
}

func TestDecodeRecordRejectsInvalidJSON(t *testing.T) {
	if _, err := DecodeRecord([]byte(`{"name":`)); err == nil {
		t.Fatalf("expected error for truncated JSON")
	}
}

func TestDecodeRecordsSkipsNonObjects(t *testing.T) {
	records, err := DecodeRecords([]byte(`[{"name":"a"}, 3, "x", {"name":"b","x":4,"y":2}]`))
	if err != nil {
		t.Fatalf("DecodeRecords() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records[1].Coordinates[0] != (Point{X: 4, Y: 2}) {
		t.Fatalf("legacy coordinate = %#v", records[1].Coordinates)
	}

	if _, err := DecodeRecords([]byte(`{"name":"a"}`)); err == nil {
		t.Fatalf("expected error for non-array actions")
	}
}

func TestNormalizeDoesNotAliasCoordinates(t *testing.T) {
	coords := []Point{{X: 1, Y: 1}}
	record := Normalize(ActionRecord{Coordinates: coords, Mode: "weird", Button: ""})
	record.Coordinates[0].X = 99
	if coords[0].X != 1 {
		t.Fatalf("Normalize must copy coordinates")
	}
	if record.Mode != ModeSingle || record.Button != ButtonLeft {
		t.Fatalf("mode/button = %q/%q", record.Mode, record.Button)
	}
}

func TestClicksPerStep(t *testing.T) {
	tests := []struct {
		record ActionRecord
		want   int
	}{
		{record: ActionRecord{Mode: ModeSingle, BurstCount: 9}, want: 1},
		{record: ActionRecord{Mode: ModeDouble}, want: 2},
		{record: ActionRecord{Mode: ModeBurst, BurstCount: 6}, want: 6},
		{record: ActionRecord{Mode: ModeBurst, BurstCount: -2}, want: 1},
	}
	for _, tc := range tests {
		if got := tc.record.ClicksPerStep(); got != tc.want {
			t.Fatalf("ClicksPerStep(%#v) = %d, want %d", tc.record, got, tc.want)
		}
	}
}
