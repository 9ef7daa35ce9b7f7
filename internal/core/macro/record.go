package macro

import (
	"fmt"

	"github.com/tidwall/gjson"
)

const (
	defaultActionName = "Action"
	defaultDelayMs    = 100
	// defaultBurstCount applies when burst_count is absent or not a number.
	defaultBurstCount = 5
)

// Normalize enforces the record invariants: at least one coordinate, a known mode and
// button, burst count >= 1 and delay >= 0.
func Normalize(record ActionRecord) ActionRecord {
	if len(record.Coordinates) == 0 {
		record.Coordinates = []Point{{X: 0, Y: 0}}
	} else {
		coords := make([]Point, len(record.Coordinates))
		copy(coords, record.Coordinates)
		record.Coordinates = coords
	}
	record.Mode = ParseClickMode(string(record.Mode))
	record.Button = ParseButton(string(record.Button))
	if record.BurstCount < 1 {
		record.BurstCount = 1
	}
	if record.DelayMs < 0 {
		record.DelayMs = 0
	}
	return record
}

// ClicksPerStep is the number of down/up pairs one coordinate step issues.
func (r ActionRecord) ClicksPerStep() int {
	switch r.Mode {
	case ModeDouble:
		return 2
	case ModeBurst:
		if r.BurstCount < 1 {
			return 1
		}
		return r.BurstCount
	default:
		return 1
	}
}

// DecodeRecord reads one persisted action object. Every field is optional: missing or
// mistyped values degrade to defaults instead of failing, and the legacy single-point
// "x"/"y" fields are folded into Coordinates when "coords" is empty.
func DecodeRecord(raw []byte) (ActionRecord, error) {
	if !gjson.ValidBytes(raw) {
		return ActionRecord{}, fmt.Errorf("action is not valid JSON")
	}
	return decodeRecordResult(gjson.ParseBytes(raw)), nil
}

// DecodeRecords reads a JSON array of action objects. Non-object entries are skipped.
func DecodeRecords(raw []byte) ([]ActionRecord, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("actions are not valid JSON")
	}
	parsed := gjson.ParseBytes(raw)
	if !parsed.IsArray() {
		return nil, fmt.Errorf("actions must be a JSON array, got %s", parsed.Type)
	}

	records := make([]ActionRecord, 0, len(parsed.Array()))
	parsed.ForEach(func(_, value gjson.Result) bool {
		if value.IsObject() {
			records = append(records, decodeRecordResult(value))
		}
		return true
	})
	return records, nil
}

func decodeRecordResult(obj gjson.Result) ActionRecord {
	record := ActionRecord{
		Name:       defaultActionName,
		Mode:       ModeSingle,
		Button:     ButtonLeft,
		BurstCount: defaultBurstCount,
		DelayMs:    defaultDelayMs,
		Enabled:    true,
	}

	if name := obj.Get("name"); name.Exists() {
		record.Name = name.String()
	}
	record.Hotkey = obj.Get("hotkey").String()
	if mode := obj.Get("mode"); mode.Exists() {
		record.Mode = ParseClickMode(mode.String())
	}
	if button := obj.Get("button"); button.Exists() {
		record.Button = ParseButton(button.String())
	}
	if burst, ok := intField(obj, "burst_count"); ok {
		record.BurstCount = burst
	}
	if delay, ok := intField(obj, "delay_ms"); ok {
		record.DelayMs = delay
	}
	if enabled := obj.Get("enabled"); enabled.Exists() {
		record.Enabled = enabled.Bool()
	}

	obj.Get("coords").ForEach(func(_, coord gjson.Result) bool {
		record.Coordinates = append(record.Coordinates, Point{
			X: int(coord.Get("x").Int()),
			Y: int(coord.Get("y").Int()),
		})
		return true
	})
	if len(record.Coordinates) == 0 {
		record.Coordinates = []Point{{
			X: int(obj.Get("x").Int()),
			Y: int(obj.Get("y").Int()),
		}}
	}

	return Normalize(record)
}

// intField accepts JSON numbers and numeric strings, as older configs stored entry text.
func intField(obj gjson.Result, key string) (int, bool) {
	value := obj.Get(key)
	switch value.Type {
	case gjson.Number:
		return int(value.Int()), true
	case gjson.String:
		var n int
		if _, err := fmt.Sscanf(value.String(), "%d", &n); err == nil {
			return n, true
		}
	}
	return 0, false
}
