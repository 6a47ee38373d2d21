// Package normalize turns raw service-request features into model.ServiceRequest
// records: trimmed case identifiers, local open times, and defaulted case types.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone rules for hosts without a zoneinfo database

	"github.com/rotisserie/eris"

	"github.com/sells-group/repeat311/internal/model"
)

// Sentinel errors for fields that cannot be normalized.
var (
	ErrMalformedTimestamp = eris.New("normalize: malformed OpenedDateTime")
	ErrMalformedLocation  = eris.New("normalize: malformed Location")
)

// Options configures a Normalizer.
type Options struct {
	TimeZone        string
	CaseIDPrefixLen int
	DefaultCaseType string
}

// DefaultOptions returns the options used by the 311 export: New York local
// time, a 7-character case-id prefix, and "N/A" for missing case types.
func DefaultOptions() Options {
	return Options{
		TimeZone:        "America/New_York",
		CaseIDPrefixLen: 7,
		DefaultCaseType: model.DefaultCaseType,
	}
}

// Normalizer converts features into ServiceRequests. It is safe for
// concurrent use.
type Normalizer struct {
	loc             *time.Location
	prefixLen       int
	defaultCaseType string
}

// New builds a Normalizer, resolving the configured time zone.
func New(opts Options) (*Normalizer, error) {
	loc, err := time.LoadLocation(opts.TimeZone)
	if err != nil {
		return nil, eris.Wrapf(err, "normalize: load time zone %q", opts.TimeZone)
	}
	if opts.CaseIDPrefixLen < 0 {
		return nil, eris.Errorf("normalize: negative case id prefix length %d", opts.CaseIDPrefixLen)
	}
	return &Normalizer{
		loc:             loc,
		prefixLen:       opts.CaseIDPrefixLen,
		defaultCaseType: opts.DefaultCaseType,
	}, nil
}

// Location returns the zone open times are converted into.
func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// Normalize derives a ServiceRequest from a feature's properties. Missing
// fields take their defaults; only a non-numeric OpenedDateTime or a
// non-string Location is an error.
func (n *Normalizer) Normalize(props map[string]interface{}) (model.ServiceRequest, error) {
	location, err := locationOf(props)
	if err != nil {
		return model.ServiceRequest{}, err
	}

	caseType := n.defaultCaseType
	if v, ok := props[model.PropCaseType]; ok && v != nil {
		caseType = Stringify(v)
	}

	var raw interface{} = float64(0)
	if v, ok := props[model.PropOpenedDateTime]; ok {
		raw = v
	}
	opened, err := OpenedAt(raw, n.loc)
	if err != nil {
		return model.ServiceRequest{}, eris.Wrapf(err, "normalize: case %q", Stringify(props[model.PropCaseID]))
	}

	return model.ServiceRequest{
		CaseID:   StripCaseID(CaseIDString(props[model.PropCaseID]), n.prefixLen),
		Location: location,
		CaseType: caseType,
		OpenedAt: opened,
	}, nil
}

// StripCaseID drops the first n characters of id when it is longer than n
// characters; shorter or equal-length ids are returned unchanged.
func StripCaseID(id string, n int) string {
	runes := []rune(id)
	if len(runes) > n {
		return string(runes[n:])
	}
	return id
}

// CaseIDString coerces a CaseID property to a string. A missing or null id is
// the empty string.
func CaseIDString(v interface{}) string {
	if v == nil {
		return ""
	}
	return Stringify(v)
}

// Stringify renders a decoded JSON scalar as text. Integral numbers print
// without a decimal point; integer literals decoded as json.Number print
// digit for digit.
func Stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		if !strings.ContainsAny(t.String(), ".eE") {
			return t.String()
		}
		f, err := t.Float64()
		if err != nil {
			return t.String()
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// OpenedAt interprets v as milliseconds since the Unix epoch in UTC and
// returns the corresponding civil time in loc.
func OpenedAt(v interface{}, loc *time.Location) (time.Time, error) {
	var ms float64
	switch t := v.(type) {
	case float64:
		ms = t
	case float32:
		ms = float64(t)
	case int:
		ms = float64(t)
	case int64:
		return time.UnixMilli(t).In(loc), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return time.UnixMilli(i).In(loc), nil
		}
		f, err := t.Float64()
		if err != nil {
			return time.Time{}, eris.Wrapf(ErrMalformedTimestamp, "value %q", t.String())
		}
		ms = f
	default:
		return time.Time{}, eris.Wrapf(ErrMalformedTimestamp, "value %v (%T)", v, v)
	}
	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return time.Time{}, eris.Wrapf(ErrMalformedTimestamp, "value %v", ms)
	}
	return time.UnixMicro(int64(math.Round(ms * 1000))).In(loc), nil
}

func locationOf(props map[string]interface{}) (string, error) {
	v, ok := props[model.PropLocation]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", eris.Wrapf(ErrMalformedLocation, "value %v (%T)", v, v)
	}
	return s, nil
}
