package domain

import (
	"context"
	"log/slog"
	"slices"
)

// GeocodingResult contains place details returned by a geocoding provider.
type GeocodingResult struct {
	FormattedAddress string
	PlaceName        string
	Confidence       float64 // 0.0–1.0 provider relevance score
}

// Geocoder resolves marker coordinates to human-readable place details.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodingResult, error)
}

// AnnotateIncidents attaches place names to the top incidents so map markers
// can show where each accident happened. A nil geocoder returns the incidents
// unchanged. Lookups that fail or come back empty leave that incident
// unannotated (graceful degradation). The input slice is not modified.
func AnnotateIncidents(ctx context.Context, incidents []RankedIncident, geocoder Geocoder, logger *slog.Logger) []RankedIncident {
	out := slices.Clone(incidents)
	if geocoder == nil {
		return out
	}

	for i := range out {
		if ctx.Err() != nil {
			break
		}
		rec := out[i].Record
		result, err := geocoder.ReverseGeocode(ctx, rec.Latitude, rec.Longitude)
		if err != nil {
			logger.Warn("reverse geocoding failed",
				"accident_id", rec.ID,
				"lat", rec.Latitude,
				"lon", rec.Longitude,
				"error", err,
			)
			continue
		}
		if result.FormattedAddress == "" && result.PlaceName == "" {
			continue
		}
		out[i].PlaceName = result.PlaceName
		out[i].FormattedAddress = result.FormattedAddress
	}
	return out
}
