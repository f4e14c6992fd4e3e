package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"
	"unicode/utf8"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/accident-risk-etl/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	InputPath string
	Delimiter rune

	ColumnID        string
	ColumnLatitude  string
	ColumnLongitude string
	ColumnInjured   string
	ColumnDeaths    string

	TopN int

	// Heat map rendering parameters, passed through to the heat layer.
	HeatMinOpacity float64
	HeatRadius     int
	HeatBlur       int
	HeatMaxZoom    int
	MapCenterLat   float64
	MapCenterLon   float64
	MapZoom        int

	// Artifact sinks. Empty paths and a false KafkaEnabled disable the sink.
	OutputDir    string
	SQLitePath   string
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
	SinkAttempts int

	BatchSize          int
	BatchFlushInterval time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("MAPBOX_TIMEOUT", "5s"))
	if err != nil || mapboxTimeout <= 0 {
		return nil, errors.New("invalid MAPBOX_TIMEOUT")
	}

	delimiter, err := parseDelimiter(sharedcfg.EnvOrDefault("CSV_DELIMITER", ";"))
	if err != nil {
		return nil, err
	}

	defaults := domain.DefaultHeatLayerOptions()
	p := &parser{}
	topN := p.intVar("TOP_N", domain.DefaultTopN, 0)
	minOpacity := p.floatVar("HEAT_MIN_OPACITY", defaults.MinOpacity)
	radius := p.intVar("HEAT_RADIUS", defaults.Radius, 1)
	blur := p.intVar("HEAT_BLUR", defaults.Blur, 0)
	maxZoom := p.intVar("HEAT_MAX_ZOOM", defaults.MaxZoom, 0)
	centerLat := p.floatVar("MAP_CENTER_LAT", defaults.Center.Lat)
	centerLon := p.floatVar("MAP_CENTER_LON", defaults.Center.Lon)
	zoom := p.intVar("MAP_ZOOM", defaults.Zoom, 0)
	sinkAttempts := p.intVar("SINK_ATTEMPTS", 3, 1)
	if p.err != nil {
		return nil, p.err
	}
	if minOpacity < 0 || minOpacity > 1 {
		return nil, errors.New("invalid HEAT_MIN_OPACITY: must be 0-1")
	}
	if centerLat < -90 || centerLat > 90 || centerLon < -180 || centerLon > 180 {
		return nil, errors.New("invalid MAP_CENTER_LAT/MAP_CENTER_LON: out of range")
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	schema := domain.DefaultSchema()
	cfg := &Config{
		InputPath: sharedcfg.EnvOrDefault("INPUT_PATH", "cat_acidentes.csv"),
		Delimiter: delimiter,

		ColumnID:        sharedcfg.EnvOrDefault("COLUMN_ID", schema.ID),
		ColumnLatitude:  sharedcfg.EnvOrDefault("COLUMN_LATITUDE", schema.Latitude),
		ColumnLongitude: sharedcfg.EnvOrDefault("COLUMN_LONGITUDE", schema.Longitude),
		ColumnInjured:   sharedcfg.EnvOrDefault("COLUMN_INJURED", schema.Injured),
		ColumnDeaths:    sharedcfg.EnvOrDefault("COLUMN_DEATHS", schema.Deaths),

		TopN: topN,

		HeatMinOpacity: minOpacity,
		HeatRadius:     radius,
		HeatBlur:       blur,
		HeatMaxZoom:    maxZoom,
		MapCenterLat:   centerLat,
		MapCenterLon:   centerLon,
		MapZoom:        zoom,

		OutputDir:    os.Getenv("OUTPUT_DIR"),
		SQLitePath:   os.Getenv("SQLITE_PATH"),
		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "enriched-accidents"),
		SinkAttempts: sinkAttempts,

		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

// Schema returns the column layout used to load the input table.
func (c *Config) Schema() domain.Schema {
	return domain.Schema{
		ID:        c.ColumnID,
		Latitude:  c.ColumnLatitude,
		Longitude: c.ColumnLongitude,
		Injured:   c.ColumnInjured,
		Deaths:    c.ColumnDeaths,
		Delimiter: c.Delimiter,
	}
}

// HeatOptions returns the heat map rendering parameters.
func (c *Config) HeatOptions() domain.HeatLayerOptions {
	return domain.HeatLayerOptions{
		Center:     domain.LatLon{Lat: c.MapCenterLat, Lon: c.MapCenterLon},
		Zoom:       c.MapZoom,
		MinOpacity: c.HeatMinOpacity,
		MaxZoom:    c.HeatMaxZoom,
		Radius:     c.HeatRadius,
		Blur:       c.HeatBlur,
	}
}

func parseDelimiter(s string) (rune, error) {
	if s == `\t` {
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || size != len(s) || r == utf8.RuneError {
		return 0, errors.New("invalid CSV_DELIMITER: must be a single character")
	}
	if r == '"' || r == '\r' || r == '\n' {
		return 0, fmt.Errorf("invalid CSV_DELIMITER: %q cannot be used", r)
	}
	return r, nil
}

// parser collects the first numeric parse error so Load can check once.
type parser struct {
	err error
}

func (p *parser) intVar(key string, fallback, lowest int) int {
	s := os.Getenv(key)
	if s == "" || p.err != nil {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lowest {
		p.err = fmt.Errorf("invalid %s: must be an integer >= %d", key, lowest)
		return fallback
	}
	return n
}

func (p *parser) floatVar(key string, fallback float64) float64 {
	s := os.Getenv(key)
	if s == "" || p.err != nil {
		return fallback
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		p.err = fmt.Errorf("invalid %s: must be a number", key)
		return fallback
	}
	return f
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
