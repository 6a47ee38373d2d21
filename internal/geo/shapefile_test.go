package geo

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/repeat311/internal/model"
)

func openedText(r model.ServiceRequest) string { return "opened-" + r.CaseID }

func TestWriteShapefile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repeats.shp")
	rows := []ShapeRow{
		{
			Geometry: geom.NewPointFlat(geom.XY, []float64{-81.69, 41.49}),
			Request:  model.ServiceRequest{CaseID: "2345", Location: "10 Elm St", CaseType: "Pothole"},
		},
		{
			Geometry: geom.NewLineStringFlat(geom.XY, []float64{0, 0, 1, 1}),
			Request:  model.ServiceRequest{CaseID: "line"},
		},
		{
			Geometry: geom.NewMultiPointFlat(geom.XY, []float64{-81.70, 41.50}),
			Request:  model.ServiceRequest{CaseID: "2346", Location: "10 ELM ST", CaseType: "N/A"},
		},
		{Geometry: nil, Request: model.ServiceRequest{CaseID: "none"}},
	}

	n, err := WriteShapefile(path, rows, openedText)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	r, err := shp.Open(path)
	require.NoError(t, err)
	defer r.Close() //nolint:errcheck

	var names []string
	for _, f := range r.Fields() {
		names = append(names, strings.TrimRight(f.String(), "\x00"))
	}
	assert.Equal(t, []string{"CASEID", "LOCATION", "CASETYPE", "OPENED"}, names)

	var ids, opened []string
	var xs []float64
	for r.Next() {
		_, shape := r.Shape()
		pt, ok := shape.(*shp.Point)
		require.True(t, ok)
		xs = append(xs, pt.X)
		ids = append(ids, strings.TrimSpace(strings.TrimRight(r.Attribute(0), "\x00")))
		opened = append(opened, strings.TrimSpace(strings.TrimRight(r.Attribute(3), "\x00")))
	}
	assert.Equal(t, []string{"2345", "2346"}, ids)
	assert.Equal(t, []string{"opened-2345", "opened-2346"}, opened)
	assert.InDeltaSlice(t, []float64{-81.69, -81.70}, xs, 1e-9)
}

func TestWriteShapefile_BadPath(t *testing.T) {
	_, err := WriteShapefile(filepath.Join(t.TempDir(), "missing", "x.shp"), nil, openedText)
	require.Error(t, err)
}
