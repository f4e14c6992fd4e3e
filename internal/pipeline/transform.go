package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/accident-risk-etl/internal/domain"
)

// AccidentTransformer turns loaded rows into run artifacts using the domain
// transforms, with optional geocoding of the top incidents.
type AccidentTransformer struct {
	geocoder domain.Geocoder
	logger   *slog.Logger
	topN     int
	heat     domain.HeatLayerOptions
}

// NewTransformer creates an AccidentTransformer. Pass a nil geocoder to
// disable place-name annotation.
func NewTransformer(geocoder domain.Geocoder, logger *slog.Logger, topN int, heat domain.HeatLayerOptions) *AccidentTransformer {
	return &AccidentTransformer{
		geocoder: geocoder,
		logger:   logger,
		topN:     topN,
		heat:     heat,
	}
}

// Transform validates and enriches raws, then derives every projection from
// the resulting dataset. Dropped rows are logged at debug level.
func (t *AccidentTransformer) Transform(ctx context.Context, raws []domain.RawRecord) domain.Artifacts {
	valid := domain.ValidateRecords(raws, func(raw domain.RawRecord, err error) {
		t.logger.Debug("row dropped",
			"line", raw.Line,
			"accident_id", raw.ID,
			"reason", err,
		)
	})

	artifacts := domain.BuildArtifacts(domain.EnrichRecords(valid), len(raws), t.topN, t.heat)
	artifacts.TopIncidents = domain.AnnotateIncidents(ctx, artifacts.TopIncidents, t.geocoder, t.logger)
	return artifacts
}
