package health

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tahcohcat/stride/internal/models"
)

type envelope int

const (
	envelopeAggregated envelope = iota + 1 // {"aggregatedData": [...]}
	envelopeArray                          // [...]
	envelopeData                           // {"data": [...]}
)

// maxSteps bounds a single record and a day's sum to the storable INTEGER range.
const maxSteps = math.MaxInt32

var (
	stepFields = []string{"steps", "count", "value", "stepsCount", "COUNT_TOTAL"}
	dateFields = []string{"startDate", "date", "formatted_date", "startTime", "day", "timestamp", "endDate"}
)

// Transform parses a raw platform response into at most one record per calendar date,
// ascending. Records without a usable date or with a non-numeric, negative or oversized count are
// dropped; records sharing a date are summed, capped at maxSteps. Epoch timestamps are converted in loc
// (nil means time.Local); date strings keep their literal calendar date.
func Transform(raw []byte, loc *time.Location) ([]models.DailySteps, error) {
	if loc == nil {
		loc = time.Local
	}

	records, _, err := parseEnvelope(raw)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]int64)
	for _, rec := range records {
		date, ok := dateOf(rec, loc)
		if !ok {
			continue
		}
		steps, ok := stepsOf(rec)
		if !ok {
			continue
		}
		totals[date] = min(totals[date]+steps, maxSteps)
	}

	days := make([]models.DailySteps, 0, len(totals))
	for date, steps := range totals {
		days = append(days, models.DailySteps{Steps: int(steps), FormattedDate: date})
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].FormattedDate < days[j].FormattedDate
	})
	return days, nil
}

// parseEnvelope tries each known response shape in order.
func parseEnvelope(raw []byte) ([]map[string]any, envelope, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, 0, ErrUnknownShape
	}

	if trimmed[0] == '[' {
		records, err := decodeRecords(trimmed)
		if err != nil {
			return nil, 0, err
		}
		return records, envelopeArray, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnknownShape, err)
	}

	for _, candidate := range []struct {
		key  string
		kind envelope
	}{
		{"aggregatedData", envelopeAggregated},
		{"data", envelopeData},
	} {
		v, ok := obj[candidate.key]
		if !ok {
			continue
		}
		records, err := decodeRecords(v)
		if err != nil {
			continue
		}
		return records, candidate.kind, nil
	}

	return nil, 0, ErrUnknownShape
}

// decodeRecords decodes a JSON array, keeping only object elements.
func decodeRecords(raw []byte) ([]map[string]any, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownShape, err)
	}

	records := make([]map[string]any, 0, len(items))
	for _, item := range items {
		var rec map[string]any
		if err := json.Unmarshal(item, &rec); err != nil || rec == nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// stepsOf takes the first step field holding a number. A negative or out of range count
// drops the record.
func stepsOf(rec map[string]any) (int64, bool) {
	for _, field := range stepFields {
		v, ok := rec[field]
		if !ok {
			continue
		}
		n, ok := number(v)
		if !ok {
			continue
		}
		if n < 0 || n > maxSteps {
			return 0, false
		}
		return int64(math.Round(n)), true
	}

	// Health Connect aggregate results nest the metric under "result"
	if nested, ok := rec["result"].(map[string]any); ok {
		return stepsOf(nested)
	}
	return 0, false
}

func number(v any) (float64, bool) {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func dateOf(rec map[string]any, loc *time.Location) (string, bool) {
	for _, field := range dateFields {
		v, ok := rec[field]
		if !ok {
			continue
		}
		if date, ok := calendarDate(v, loc); ok {
			return date, true
		}
	}
	return "", false
}

func calendarDate(v any, loc *time.Location) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if len(s) >= len(models.DateLayout) {
			if _, err := time.Parse(models.DateLayout, s[:len(models.DateLayout)]); err == nil {
				return s[:len(models.DateLayout)], true
			}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return epochDate(f, loc)
		}
		return "", false
	case float64:
		return epochDate(t, loc)
	}
	return "", false
}

// epochDate accepts seconds or milliseconds since the epoch.
func epochDate(v float64, loc *time.Location) (string, bool) {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return "", false
	}
	ms := int64(v)
	if v < 1e11 {
		ms = int64(v * 1000)
	}
	return models.FormatDate(time.UnixMilli(ms).In(loc)), true
}
