package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/repeat311/internal/config"
	"github.com/sells-group/repeat311/internal/geo"
	"github.com/sells-group/repeat311/internal/grouping"
	"github.com/sells-group/repeat311/internal/model"
	"github.com/sells-group/repeat311/internal/normalize"
	"github.com/sells-group/repeat311/internal/report"
	"github.com/sells-group/repeat311/internal/store"
)

// Result holds every view derived from one input collection.
type Result struct {
	RunID string

	// Collection is the parsed input. Records[i] is derived from
	// Collection.Features[i].
	Collection *geo.Collection
	Records    []model.ServiceRequest

	// Sorted is every record by ascending open time.
	Sorted []model.ServiceRequest
	// Groups are the repeat addresses, largest first.
	Groups []model.AddressGroup
	// Filtered holds the untouched input features at repeat addresses.
	Filtered *geo.Collection
}

// Build normalizes every feature of fc once and derives the grouped, sorted
// and filtered views from that single pass.
func Build(fc *geo.Collection, n *normalize.Normalizer) (*Result, error) {
	if fc == nil {
		return nil, eris.New("pipeline: nil feature collection")
	}

	records := make([]model.ServiceRequest, 0, len(fc.Features))
	for i, f := range fc.Features {
		rec, err := n.Normalize(f.Properties)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: normalize feature %d", i)
		}
		records = append(records, rec)
	}

	groups := grouping.GroupAndFilter(records)
	return &Result{
		Collection: fc,
		Records:    records,
		Sorted:     grouping.SortAll(records),
		Groups:     groups,
		Filtered:   geo.FilterByKeys(fc, grouping.Keys(groups)),
	}, nil
}

// ShapeRows pairs each feature at a repeat address with its record, in input
// order.
func (r *Result) ShapeRows() []geo.ShapeRow {
	keys := grouping.Keys(r.Groups)
	var rows []geo.ShapeRow
	for i, f := range r.Collection.Features {
		if _, ok := keys[r.Records[i].Key()]; !ok {
			continue
		}
		rows = append(rows, geo.ShapeRow{Geometry: f.Geometry, Request: r.Records[i]})
	}
	return rows
}

// Pipeline loads the input collection and writes every configured output.
type Pipeline struct {
	cfg   *config.Config
	store store.Store
}

// New creates a Pipeline. st may be nil, in which case runs are not archived.
func New(cfg *config.Config, st store.Store) *Pipeline {
	return &Pipeline{cfg: cfg, store: st}
}

// Run executes load, normalize, group and write in order. The first error
// aborts the run; outputs already written are left in place.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	runID := uuid.New().String()
	log := zap.L().With(zap.String("component", "pipeline"), zap.String("run_id", runID))

	phase := func(name string, fn func() error) error {
		start := time.Now()
		if err := fn(); err != nil {
			log.Error("pipeline: phase failed", zap.String("phase", name), zap.Error(err))
			return err
		}
		log.Info("pipeline: phase complete",
			zap.String("phase", name),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil
	}

	n, err := normalize.New(normalize.Options{
		TimeZone:        p.cfg.Normalize.TimeZone,
		CaseIDPrefixLen: p.cfg.Normalize.CaseIDPrefixLen,
		DefaultCaseType: p.cfg.Normalize.DefaultCaseType,
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: init normalizer")
	}

	var fc *geo.Collection
	if err := phase("load", func() error {
		var loadErr error
		fc, loadErr = geo.Load(p.cfg.Input.Path)
		return loadErr
	}); err != nil {
		return nil, err
	}
	log.Info("pipeline: loaded features", zap.String("path", p.cfg.Input.Path), zap.Int("features", len(fc.Features)))

	var res *Result
	if err := phase("normalize", func() error {
		var buildErr error
		res, buildErr = Build(fc, n)
		return buildErr
	}); err != nil {
		return nil, err
	}
	res.RunID = runID
	log.Info("pipeline: grouped requests",
		zap.Int("records", len(res.Records)),
		zap.Int("repeat_addresses", len(res.Groups)),
		zap.Int("repeat_requests", grouping.Total(res.Groups)),
	)

	out := p.cfg.Output
	if err := phase("geojson", func() error {
		return geo.Write(out.GeoJSONPath, res.Filtered)
	}); err != nil {
		return nil, err
	}
	if err := phase("report", func() error {
		return report.WriteTextFile(out.ReportPath, res.Groups)
	}); err != nil {
		return nil, err
	}
	if err := phase("csv", func() error {
		return report.WriteCSVFile(out.CSVPath, res.Sorted)
	}); err != nil {
		return nil, err
	}

	if out.ShapefilePath != "" {
		if err := phase("shapefile", func() error {
			written, shpErr := geo.WriteShapefile(out.ShapefilePath, res.ShapeRows(), func(r model.ServiceRequest) string {
				return report.FormatOpened(r.OpenedAt)
			})
			log.Info("pipeline: shapefile points", zap.Int("written", written))
			return shpErr
		}); err != nil {
			return nil, err
		}
	}
	if out.XLSXPath != "" {
		if err := phase("xlsx", func() error {
			return report.WriteXLSX(out.XLSXPath, res.Sorted)
		}); err != nil {
			return nil, err
		}
	}
	if p.store != nil {
		if err := phase("archive", func() error {
			if err := p.store.SaveRun(ctx, store.Run{
				ID:        runID,
				InputPath: p.cfg.Input.Path,
				Features:  len(res.Records),
				Groups:    len(res.Groups),
			}, res.Records, res.Groups); err != nil {
				return err
			}
			archived, err := p.store.CountRequests(ctx, runID)
			if err != nil {
				return err
			}
			if archived != len(res.Records) {
				return eris.Errorf("pipeline: archived %d requests, expected %d", archived, len(res.Records))
			}
			return nil
		}); err != nil {
			return nil, err
		}
	}

	return res, nil
}
