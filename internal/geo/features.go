// Package geo reads and writes the GeoJSON feature collections exchanged with
// the 311 export and the derived shapefile layer.
package geo

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/repeat311/internal/model"
)

// Sentinel errors for documents that are valid JSON but not the expected
// GeoJSON shape.
var (
	ErrNotFeatureCollection = eris.New("geo: document is not a FeatureCollection")
	ErrNotFeature           = eris.New("geo: member is not a Feature")
)

// Feature is one input feature. Raw is the feature exactly as read and is
// what Encode writes back; Geometry and Properties are decoded from it.
// Numeric properties decode as json.Number so large integers stay exact.
type Feature struct {
	Raw        json.RawMessage
	Geometry   geom.T
	Properties map[string]interface{}
}

// Collection is an ordered list of features.
type Collection struct {
	Features []*Feature
}

// Load reads and parses the feature collection at path.
func Load(path string) (*Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	fc, err := Decode(f)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: load %s", path)
	}
	return fc, nil
}

// Decode parses a feature collection from r.
func Decode(r io.Reader) (*Collection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "geo: read")
	}

	var doc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "geo: parse")
	}
	if doc.Type != "FeatureCollection" {
		return nil, eris.Wrapf(ErrNotFeatureCollection, "type %q", doc.Type)
	}

	fc := &Collection{Features: make([]*Feature, 0, len(doc.Features))}
	for i, raw := range doc.Features {
		f, err := decodeFeature(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "geo: feature %d", i)
		}
		fc.Features = append(fc.Features, f)
	}
	return fc, nil
}

func decodeFeature(raw json.RawMessage) (*Feature, error) {
	var head struct {
		Type       string          `json:"type"`
		Geometry   json.RawMessage `json:"geometry"`
		Properties json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, eris.Wrap(err, "geo: parse feature")
	}
	if head.Type != "Feature" {
		return nil, eris.Wrapf(ErrNotFeature, "type %q", head.Type)
	}

	f := &Feature{Raw: raw}
	if !isNull(head.Properties) {
		dec := json.NewDecoder(bytes.NewReader(head.Properties))
		dec.UseNumber()
		if err := dec.Decode(&f.Properties); err != nil {
			return nil, eris.Wrap(err, "geo: parse properties")
		}
	}
	if !isNull(head.Geometry) {
		// Geometry only feeds the shapefile layer; the feature itself is
		// passed through untouched either way.
		if err := geojson.Unmarshal(head.Geometry, &f.Geometry); err != nil {
			zap.L().Debug("geo: unreadable geometry", zap.Error(err))
			f.Geometry = nil
		}
	}
	return f, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// LocationKey returns the lower-cased Location property of a raw feature, or
// the empty string when the property is missing or not a string.
func LocationKey(f *Feature) string {
	if f == nil {
		return ""
	}
	s, _ := f.Properties[model.PropLocation].(string)
	return strings.ToLower(s)
}

// FilterByKeys returns a collection holding the features of fc whose
// LocationKey is in keys. Features are shared with fc, not copied, and keep
// their original order.
func FilterByKeys(fc *Collection, keys map[string]struct{}) *Collection {
	out := &Collection{Features: []*Feature{}}
	if fc == nil {
		return out
	}
	for _, f := range fc.Features {
		if _, ok := keys[LocationKey(f)]; ok {
			out.Features = append(out.Features, f)
		}
	}
	return out
}

// Encode writes fc to w as two-space indented GeoJSON. Each feature is
// written from its raw bytes, so ids and number literals keep their input
// form.
func Encode(w io.Writer, fc *Collection) error {
	doc := struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}{Type: "FeatureCollection", Features: []json.RawMessage{}}
	if fc != nil {
		for _, f := range fc.Features {
			doc.Features = append(doc.Features, f.Raw)
		}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return eris.Wrap(err, "geo: encode")
	}
	return nil
}

// Write encodes fc to path, truncating any existing file.
func Write(path string, fc *Collection) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "geo: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	if err := Encode(f, fc); err != nil {
		return err
	}
	return eris.Wrapf(f.Close(), "geo: close %s", path)
}
