package insight

// Kind enumerates the deterministic analysis operations.
type Kind string

const (
	KindRanking     Kind = "ranking"
	KindStatistics  Kind = "statistics"
	KindComparison  Kind = "comparison"
	KindTrend       Kind = "trend"
	KindOutliers    Kind = "outliers"
	KindCorrelation Kind = "correlation"
)

// Valid reports whether the kind names a supported analysis.
func (k Kind) Valid() bool {
	switch k {
	case KindRanking, KindStatistics, KindComparison, KindTrend, KindOutliers, KindCorrelation:
		return true
	}
	return false
}

// Statistics summarizes a single numeric metric.
type Statistics struct {
	Metric string  `json:"metric"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P25    float64 `json:"p25"`
	P75    float64 `json:"p75"`
}

// RankedEntity is one named record with the metric value that placed it.
type RankedEntity struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// GroupSummary aggregates a metric within one group (e.g. a county).
type GroupSummary struct {
	Group string  `json:"group"`
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
}

// Outlier is a record whose metric deviates beyond the detection threshold.
type Outlier struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Deviation float64 `json:"deviation"` // standard deviations from the mean
}

// Insight is the Insights Tool output: deterministic observations computed
// only from DatasetResult fields. DatasetFingerprint ties the insight to the
// dataset it was derived from.
type Insight struct {
	Kind               Kind           `json:"kind"`
	Metric             string         `json:"metric,omitempty"`
	Statistics         []Statistics   `json:"statistics,omitempty"`
	Top                []RankedEntity `json:"top,omitempty"`
	Bottom             []RankedEntity `json:"bottom,omitempty"`
	Groups             []GroupSummary `json:"groups,omitempty"`
	Outliers           []Outlier      `json:"outliers,omitempty"`
	Correlation        *Correlation   `json:"correlation,omitempty"`
	Observations       []string       `json:"observations,omitempty"`
	DatasetFingerprint string         `json:"dataset_fingerprint"`
}

// Correlation reports a Pearson coefficient between two metrics.
type Correlation struct {
	MetricX     string  `json:"metric_x"`
	MetricY     string  `json:"metric_y"`
	Coefficient float64 `json:"coefficient"`
	SampleSize  int     `json:"sample_size"`
}
