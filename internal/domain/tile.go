package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// TileTimestamp is the watermark payload stored for each tile channel. The year
// is numeric while the other fields are zero-padded strings; tile clients
// depend on this exact shape.
type TileTimestamp struct {
	Year   int    `json:"year"`
	Month  string `json:"month"`
	Day    string `json:"day"`
	Hour   string `json:"hour"`
	Minute string `json:"minute"`
}

// NewTileTimestamp builds the payload for ts (UTC).
func NewTileTimestamp(ts time.Time) TileTimestamp {
	ts = ts.UTC()
	return TileTimestamp{
		Year:   ts.Year(),
		Month:  fmt.Sprintf("%02d", int(ts.Month())),
		Day:    fmt.Sprintf("%02d", ts.Day()),
		Hour:   fmt.Sprintf("%02d", ts.Hour()),
		Minute: fmt.Sprintf("%02d", ts.Minute()),
	}
}

// Time converts the payload back to a UTC timestamp.
func (t TileTimestamp) Time() (time.Time, error) {
	parts := []string{t.Month, t.Day, t.Hour, t.Minute}
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse tile timestamp field %q: %w", p, err)
		}
		nums[i] = n
	}
	return time.Date(t.Year, time.Month(nums[0]), nums[1], nums[2], nums[3], 0, 0, time.UTC), nil
}

// MarshalTileTimestamp encodes the watermark payload for ts.
func MarshalTileTimestamp(ts time.Time) ([]byte, error) {
	return json.Marshal(NewTileTimestamp(ts))
}

// ParseTileTimestamp decodes a stored watermark payload.
func ParseTileTimestamp(data []byte) (time.Time, error) {
	var t TileTimestamp
	if err := json.Unmarshal(data, &t); err != nil {
		return time.Time{}, fmt.Errorf("decode tile timestamp: %w", err)
	}
	return t.Time()
}

// TileUpdate announces that a tile channel has a new latest timestamp.
type TileUpdate struct {
	ParamKey    string    `json:"param_key"`
	Timestamp   time.Time `json:"timestamp"`
	GeneratedAt time.Time `json:"generated_at"`
}

// NewTileUpdate stamps an update with the package clock.
func NewTileUpdate(paramKey string, ts time.Time) TileUpdate {
	return TileUpdate{
		ParamKey:    paramKey,
		Timestamp:   ts.UTC(),
		GeneratedAt: clock.Now().UTC(),
	}
}
