// Package domain models traffic-accident records and the pure transforms that
// turn a raw accident table into map and chart artifacts.
//
// # Data Source
//
// The input is the municipal accident register exported as delimited text
// (semicolon-separated by default) with one row per accident. Only five
// columns matter to the pipeline; every other column is ignored:
//
//	idacidente  opaque accident identifier
//	latitude    WGS-84 latitude in decimal degrees
//	longitude   WGS-84 longitude in decimal degrees
//	feridos     number of people injured
//	mortes      number of people killed
//
// Column names are configurable through [Schema]. A header missing any of them
// is a [MalformedInputError]; no row is processed in that case.
//
// # Cleaning
//
// Rows with an empty, null-marked ("NaN", "NA", "null", ...) or unparseable
// value in any of latitude, longitude, feridos or mortes are dropped. So are
// coordinates outside [-90,90]/[-180,180] and negative or fractional counts.
// Dropping is a filter, not a failure: a table in which every row is dropped
// yields empty artifacts.
//
// # Derived Metrics
//
//	intensity   = injured + deaths
//	pct_injured = 100 * injured / intensity
//	pct_deaths  = 100 * deaths  / intensity
//
// When intensity is 0 both percentages are 0. The shares are undefined there
// and the zero convention keeps downstream renderers free of NaN handling.
//
// # Artifacts
//
// The enriched dataset feeds three independent projections: a heat layer
// (one point per record, weight = intensity), the top-N most severe incidents
// (stable on ties, so equal intensities keep file order) and a bubble chart
// specification. See [Artifacts].
package domain
