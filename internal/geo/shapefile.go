package geo

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/repeat311/internal/model"
)

// ShapeRow pairs a feature's geometry with its normalized request.
type ShapeRow struct {
	Geometry geom.T
	Request  model.ServiceRequest
}

// shapeFields is the DBF schema of the repeat-address layer.
var shapeFields = []shp.Field{
	shp.StringField("CASEID", 32),
	shp.StringField("LOCATION", 128),
	shp.StringField("CASETYPE", 64),
	shp.StringField("OPENED", 32),
}

// WriteShapefile writes rows as a POINT shapefile (path plus the sibling .shx
// and .dbf files). Rows whose geometry is not a single point are skipped; the
// number written is returned.
func WriteShapefile(path string, rows []ShapeRow, formatTime func(model.ServiceRequest) string) (int, error) {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return 0, eris.Wrapf(err, "geo: create shapefile %s", path)
	}
	defer w.Close()

	if err := w.SetFields(shapeFields); err != nil {
		return 0, eris.Wrap(err, "geo: set shapefile fields")
	}

	var written, skipped int
	for _, row := range rows {
		pt, ok := toShapePoint(row.Geometry)
		if !ok {
			skipped++
			continue
		}

		idx := int(w.Write(pt))
		values := []string{row.Request.CaseID, row.Request.Location, row.Request.CaseType, formatTime(row.Request)}
		for field, v := range values {
			if err := w.WriteAttribute(idx, field, v); err != nil {
				return written, eris.Wrapf(err, "geo: write attribute %s for case %q", shapeFields[field].String(), row.Request.CaseID)
			}
		}
		written++
	}

	if skipped > 0 {
		zap.L().Debug("geo: skipped non-point geometries",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return written, nil
}

// toShapePoint converts a point or single-point multipoint to a shapefile point.
func toShapePoint(g geom.T) (*shp.Point, bool) {
	switch t := g.(type) {
	case *geom.Point:
		if t == nil || t.Empty() {
			return nil, false
		}
		return &shp.Point{X: t.X(), Y: t.Y()}, true
	case *geom.MultiPoint:
		if t == nil || t.NumPoints() != 1 {
			return nil, false
		}
		return toShapePoint(t.Point(0))
	default:
		return nil, false
	}
}
