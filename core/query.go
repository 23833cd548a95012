package core

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/kate8382/error-logger-viewer/models"
)

const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// QueryOptions selects and orders records for a listing.
type QueryOptions struct {
	Filter string // case-insensitive match on type; empty keeps everything
	Sort   string // field name; empty keeps insertion order
	Order  string // asc (default) or desc
}

// Descending reports whether the options ask for descending order.
func (o QueryOptions) Descending() bool {
	return strings.EqualFold(strings.TrimSpace(o.Order), OrderDesc)
}

// Apply filters and sorts a copy of records. The input slice is left as is.
// Sorting is stable in both directions: records that compare equal keep their
// input order.
func Apply(records []models.ErrorRecord, opts QueryOptions) []models.ErrorRecord {
	filter := strings.TrimSpace(opts.Filter)
	out := make([]models.ErrorRecord, 0, len(records))
	for _, r := range records {
		if filter == "" || strings.EqualFold(r.Type, filter) {
			out = append(out, r)
		}
	}

	field := strings.TrimSpace(opts.Sort)
	if field == "" || len(out) < 2 {
		return out
	}

	cmp := comparatorFor(field)
	desc := opts.Descending()
	sort.SliceStable(out, func(i, j int) bool {
		c := cmp(out[i], out[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

type comparator func(a, b models.ErrorRecord) int

func comparatorFor(field string) comparator {
	switch field {
	case models.FieldTimestamp:
		return compareEffectiveTime
	case models.FieldStatus:
		return compareStatus
	default:
		return func(a, b models.ErrorRecord) int {
			return compareField(a, b, field)
		}
	}
}

func compareEffectiveTime(a, b models.ErrorRecord) int {
	return compareTimes(a.EffectiveTime(), b.EffectiveTime())
}

func compareStatus(a, b models.ErrorRecord) int {
	ra, knownA := a.Status.Rank()
	rb, knownB := b.Status.Rank()
	if knownA || knownB {
		return compareInts(ra, rb)
	}
	return strings.Compare(string(a.Status), string(b.Status))
}

func compareField(a, b models.ErrorRecord, field string) int {
	va, okA := a.Field(field)
	vb, okB := b.Field(field)
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return -1
	case !okB:
		return 1
	}
	return compareValues(va, vb)
}

// Ranks used when two values of different kinds meet.
const (
	rankBool = iota
	rankNumber
	rankTime
	rankString
	rankOther
)

func valueRank(v any) int {
	switch v.(type) {
	case bool:
		return rankBool
	case float64, int, int64:
		return rankNumber
	case time.Time:
		return rankTime
	case string:
		return rankString
	default:
		return rankOther
	}
}

func compareValues(a, b any) int {
	ra, rb := valueRank(a), valueRank(b)
	if ra != rb {
		return compareInts(ra, rb)
	}

	switch ra {
	case rankBool:
		ba, bb := a.(bool), b.(bool)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		default:
			return 1
		}
	case rankNumber:
		fa, fb := toFloat(a), toFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	case rankTime:
		return compareTimes(a.(time.Time), b.(time.Time))
	case rankString:
		return strings.Compare(strings.ToLower(a.(string)), strings.ToLower(b.(string)))
	default:
		ja, _ := json.Marshal(a)
		jb, _ := json.Marshal(b)
		return strings.Compare(string(ja), string(jb))
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
