package pipeline

import "time"

// Defaults for the query pipeline.
// These can be overridden through Options.
const (
	// MaxStages is the length of the longest stage plan: filter, projection,
	// execute, categories and visualization.
	MaxStages = 5

	// DefaultMaxIterations bounds the stage invocations of one request.
	DefaultMaxIterations = MaxStages

	// DefaultMaxBuckets bounds the points of a categorical chart, "Other" included.
	DefaultMaxBuckets = 12

	// DefaultSampleSize is the number of rows echoed in a query summary.
	DefaultSampleSize = 3

	// DefaultMaxCachedRows caps the rows stored under one handle.
	DefaultMaxCachedRows = 1000

	// DefaultFallbackRows is the row count of the fallback table.
	DefaultFallbackRows = 20

	// DefaultCacheTTL is how long a handle stays readable.
	DefaultCacheTTL = 300 * time.Second
)

// Fixed texts of degraded artifacts.
const (
	OtherLabel         = "Other"
	FallbackSummary    = "Showing a basic table fallback due to chart preparation error."
	NoRowsSummary      = "No transactions matched your query, so there is nothing to chart."
	ErrorSummaryPrefix = "I encountered an error processing your request: "
)

// Options tunes the pipeline. Zero fields take the defaults above.
type Options struct {
	MaxIterations int
	MaxBuckets    int
	SampleSize    int
	MaxCachedRows int
	FallbackRows  int
	CacheTTL      time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.MaxBuckets <= 1 {
		o.MaxBuckets = DefaultMaxBuckets
	}
	if o.SampleSize <= 0 {
		o.SampleSize = DefaultSampleSize
	}
	if o.MaxCachedRows <= 0 {
		o.MaxCachedRows = DefaultMaxCachedRows
	}
	if o.FallbackRows <= 0 {
		o.FallbackRows = DefaultFallbackRows
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = DefaultCacheTTL
	}
	return o
}
