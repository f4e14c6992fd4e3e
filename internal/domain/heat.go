package domain

import "github.com/golang/geo/s2"

// LatLon is a map position in decimal degrees.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Bounds is the bounding box of a set of points. West may exceed East when
// the box crosses the antimeridian.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// HeatLayerOptions are the rendering parameters of the heat map. They are
// passed through to the renderer untouched.
type HeatLayerOptions struct {
	Center     LatLon
	Zoom       int
	MinOpacity float64
	MaxZoom    int
	Radius     int
	Blur       int
}

// DefaultHeatLayerOptions centers the map on Brazil at country zoom.
func DefaultHeatLayerOptions() HeatLayerOptions {
	return HeatLayerOptions{
		Center:     LatLon{Lat: -14.2350, Lon: -51.9253},
		Zoom:       4,
		MinOpacity: 0.4,
		MaxZoom:    15,
		Radius:     15,
		Blur:       10,
	}
}

// HeatLayer is a heat map ready for rendering.
type HeatLayer struct {
	Points     []HeatPoint `json:"points"`
	Center     LatLon      `json:"center"`
	Zoom       int         `json:"zoom"`
	MinOpacity float64     `json:"min_opacity"`
	MaxZoom    int         `json:"max_zoom"`
	Radius     int         `json:"radius"`
	Blur       int         `json:"blur"`
	Bounds     *Bounds     `json:"bounds"`
}

// BuildHeatPoints maps every record to a point weighted by its intensity.
// Zero-intensity records are kept with weight 0.
func BuildHeatPoints(ds []EnrichedRecord) []HeatPoint {
	out := make([]HeatPoint, len(ds))
	for i, rec := range ds {
		out[i] = HeatPoint{
			Lat:    rec.Latitude,
			Lon:    rec.Longitude,
			Weight: float64(rec.Intensity),
		}
	}
	return out
}

// BuildHeatLayer combines the heat points of ds with the rendering options.
func BuildHeatLayer(ds []EnrichedRecord, opts HeatLayerOptions) HeatLayer {
	return HeatLayer{
		Points:     BuildHeatPoints(ds),
		Center:     opts.Center,
		Zoom:       opts.Zoom,
		MinOpacity: opts.MinOpacity,
		MaxZoom:    opts.MaxZoom,
		Radius:     opts.Radius,
		Blur:       opts.Blur,
		Bounds:     datasetBounds(ds),
	}
}

func datasetBounds(ds []EnrichedRecord) *Bounds {
	if len(ds) == 0 {
		return nil
	}
	rect := s2.EmptyRect()
	for _, rec := range ds {
		rect = rect.AddPoint(s2.LatLngFromDegrees(rec.Latitude, rec.Longitude))
	}
	lo, hi := rect.Lo(), rect.Hi()
	return &Bounds{
		South: lo.Lat.Degrees(),
		West:  lo.Lng.Degrees(),
		North: hi.Lat.Degrees(),
		East:  hi.Lng.Degrees(),
	}
}
