package transcript

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Record keys understood by FromRecords
const (
	KeySpeaker   = "speaker"
	KeyText      = "text"
	KeyStartTime = "stime"
	KeyEndTime   = "etime"

	aliasStartTime = "start_time"
	aliasEndTime   = "end_time"
)

// FromRecords converts already-deserialized records into a Transcript.
// Missing speaker or text default to "", missing or unparsable times default
// to 0. Non-finite times (NaN, Inf) count as unparsable. No record is ever
// rejected.
func FromRecords(records []map[string]interface{}) Transcript {
	t := make(Transcript, 0, len(records))
	for _, rec := range records {
		t = append(t, FromRecord(rec))
	}
	return t
}

// FromRecord converts a single record using the same defaults as FromRecords
func FromRecord(rec map[string]interface{}) Utterance {
	return Utterance{
		Speaker:   toString(rec[KeySpeaker]),
		Text:      toString(rec[KeyText]),
		StartTime: toFloat(lookup(rec, KeyStartTime, aliasStartTime)),
		EndTime:   toFloat(lookup(rec, KeyEndTime, aliasEndTime)),
	}
}

func lookup(rec map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := rec[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func toString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(s)
	}
}

// toFloat returns 0 for anything that is not a finite number
func toFloat(v interface{}) float64 {
	f := parseFloat(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func parseFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
