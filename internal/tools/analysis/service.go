package analysis

import (
	"fmt"
	"sort"

	"edinsights/internal/domain/insight"
	"edinsights/internal/domain/school"
	"edinsights/pkg/errors"
	"edinsights/pkg/logger"
)

const (
	// DefaultTopN bounds ranking output in each direction.
	DefaultTopN = 3
	// OutlierThreshold is the deviation, in standard deviations, beyond
	// which a record counts as an outlier.
	OutlierThreshold = 2.0
	// MaxOutliers caps outlier output regardless of dataset size.
	MaxOutliers = 20
)

// Request selects one analysis over a dataset. Metric names refer to
// dataset fields; GroupBy and MetricY apply only to the kinds that use them.
type Request struct {
	Kind    insight.Kind `json:"kind"`
	Metric  string       `json:"metric"`
	MetricY string       `json:"metric_y,omitempty"`
	GroupBy string       `json:"group_by,omitempty"`
	TopN    int          `json:"top_n,omitempty"`
}

// Service is the Insights Tool: deterministic analysis over dataset values,
// never over anything a model produced. The same dataset and request always
// yield the same insight.
type Service struct {
	log *logger.Logger
}

// NewService creates the analysis service.
func NewService(log *logger.Logger) *Service {
	return &Service{log: log.With("component", "analysis_service")}
}

// Analyze computes one insight from the dataset. An empty dataset or a metric
// with no usable values yields ErrInsufficientData.
func (s *Service) Analyze(dataset *school.DatasetResult, req Request) (*insight.Insight, error) {
	if !req.Kind.Valid() {
		return nil, errors.NewValidationError("kind", "unknown analysis kind", string(req.Kind))
	}
	if dataset.Empty() {
		return nil, errors.Wrapf(errors.ErrInsufficientData, "analysis %s: dataset is empty", req.Kind)
	}

	out := &insight.Insight{
		Kind:               req.Kind,
		Metric:             req.Metric,
		DatasetFingerprint: dataset.Fingerprint,
	}

	var err error
	switch req.Kind {
	case insight.KindRanking:
		err = s.rank(dataset, req, out)
	case insight.KindStatistics:
		err = s.describe(dataset, req, out)
	case insight.KindComparison, insight.KindTrend:
		err = s.groupSummaries(dataset, req, out)
	case insight.KindOutliers:
		err = s.outliers(dataset, req, out)
	case insight.KindCorrelation:
		err = s.correlate(dataset, req, out)
	}
	if err != nil {
		return nil, err
	}

	s.log.Debugf("Analysis complete: kind=%s metric=%s fingerprint=%s",
		req.Kind, req.Metric, dataset.Fingerprint)
	return out, nil
}

func (s *Service) rank(dataset *school.DatasetResult, req Request, out *insight.Insight) error {
	ranked, err := namedValues(dataset, req.Metric)
	if err != nil {
		return err
	}

	topN := req.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}
	if topN > len(ranked) {
		topN = len(ranked)
	}

	descending := make([]insight.RankedEntity, len(ranked))
	copy(descending, ranked)
	sortRanked(descending, false)
	out.Top = descending[:topN]

	ascending := make([]insight.RankedEntity, len(ranked))
	copy(ascending, ranked)
	sortRanked(ascending, true)
	out.Bottom = ascending[:topN]

	out.Observations = append(out.Observations,
		fmt.Sprintf("%s leads on %s at %.2f; %s is lowest at %.2f",
			out.Top[0].Name, req.Metric, out.Top[0].Value,
			out.Bottom[0].Name, out.Bottom[0].Value))
	return nil
}

func (s *Service) describe(dataset *school.DatasetResult, req Request, out *insight.Insight) error {
	metrics := []string{req.Metric}
	if req.Metric == "" {
		metrics = numericFields(dataset)
		if len(metrics) == 0 {
			return errors.Wrap(errors.ErrInsufficientData, "statistics: no numeric fields in dataset")
		}
	}

	for _, metric := range metrics {
		values := metricValues(dataset, metric)
		if len(values) == 0 {
			if req.Metric != "" {
				return errors.Wrapf(errors.ErrInsufficientData, "statistics: no values for metric %q", metric)
			}
			continue
		}
		out.Statistics = append(out.Statistics, insight.Statistics{
			Metric: metric,
			Count:  len(values),
			Mean:   Mean(values),
			Median: Median(values),
			StdDev: StdDev(values),
			Min:    Percentile(values, 0),
			Max:    Percentile(values, 100),
			P25:    Percentile(values, 25),
			P75:    Percentile(values, 75),
		})
	}
	if len(out.Statistics) == 0 {
		return errors.Wrap(errors.ErrInsufficientData, "statistics: no numeric values in dataset")
	}

	first := out.Statistics[0]
	out.Observations = append(out.Observations,
		fmt.Sprintf("%s averages %.2f (median %.2f) across %d records",
			first.Metric, first.Mean, first.Median, first.Count))
	return nil
}

func (s *Service) groupSummaries(dataset *school.DatasetResult, req Request, out *insight.Insight) error {
	if req.GroupBy == "" {
		return errors.NewValidationError("group_by", "grouping field is required", string(req.Kind))
	}

	sums := map[string]float64{}
	counts := map[string]int{}
	for _, row := range dataset.Rows {
		group := school.Text(row, req.GroupBy)
		if group == "" {
			continue
		}
		v, ok := school.Float(row, req.Metric)
		if !ok {
			continue
		}
		sums[group] += v
		counts[group]++
	}
	if len(counts) == 0 {
		return errors.Wrapf(errors.ErrInsufficientData,
			"%s: no usable %q values grouped by %q", req.Kind, req.Metric, req.GroupBy)
	}

	groups := make([]insight.GroupSummary, 0, len(counts))
	for group, count := range counts {
		groups = append(groups, insight.GroupSummary{
			Group: group,
			Count: count,
			Mean:  sums[group] / float64(count),
		})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Mean != groups[j].Mean {
			return groups[i].Mean > groups[j].Mean
		}
		return groups[i].Group < groups[j].Group
	})
	out.Groups = groups

	leader := groups[0]
	laggard := groups[len(groups)-1]
	out.Observations = append(out.Observations,
		fmt.Sprintf("%s has the highest mean %s (%.2f); %s the lowest (%.2f)",
			leader.Group, req.Metric, leader.Mean, laggard.Group, laggard.Mean))
	return nil
}

func (s *Service) outliers(dataset *school.DatasetResult, req Request, out *insight.Insight) error {
	ranked, err := namedValues(dataset, req.Metric)
	if err != nil {
		return err
	}

	values := make([]float64, len(ranked))
	for i, r := range ranked {
		values[i] = r.Value
	}
	mean := Mean(values)
	std := StdDev(values)
	if std == 0 {
		out.Observations = append(out.Observations,
			fmt.Sprintf("no outliers: %s shows no variance across %d records", req.Metric, len(values)))
		return nil
	}

	outliers := make([]insight.Outlier, 0)
	for _, r := range ranked {
		dev := (r.Value - mean) / std
		if dev >= OutlierThreshold || dev <= -OutlierThreshold {
			outliers = append(outliers, insight.Outlier{Name: r.Name, Value: r.Value, Deviation: dev})
		}
	}
	sort.Slice(outliers, func(i, j int) bool {
		di, dj := abs(outliers[i].Deviation), abs(outliers[j].Deviation)
		if di != dj {
			return di > dj
		}
		return outliers[i].Name < outliers[j].Name
	})
	if len(outliers) > MaxOutliers {
		outliers = outliers[:MaxOutliers]
	}
	out.Outliers = outliers

	out.Observations = append(out.Observations,
		fmt.Sprintf("%d of %d records deviate more than %.1f standard deviations on %s",
			len(outliers), len(values), OutlierThreshold, req.Metric))
	return nil
}

func (s *Service) correlate(dataset *school.DatasetResult, req Request, out *insight.Insight) error {
	if req.MetricY == "" {
		return errors.NewValidationError("metric_y", "second metric is required", string(insight.KindCorrelation))
	}

	var xs, ys []float64
	for _, row := range dataset.Rows {
		x, okX := school.Float(row, req.Metric)
		y, okY := school.Float(row, req.MetricY)
		if okX && okY {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	if len(xs) < 2 {
		return errors.Wrapf(errors.ErrInsufficientData,
			"correlation: need at least 2 paired values for %q and %q, have %d",
			req.Metric, req.MetricY, len(xs))
	}

	out.Correlation = &insight.Correlation{
		MetricX:     req.Metric,
		MetricY:     req.MetricY,
		Coefficient: Pearson(xs, ys),
		SampleSize:  len(xs),
	}
	out.Observations = append(out.Observations,
		fmt.Sprintf("correlation between %s and %s is %.3f over %d paired records",
			req.Metric, req.MetricY, out.Correlation.Coefficient, len(xs)))
	return nil
}

// namedValues pairs each row's display name with its metric value, skipping
// rows where the metric is missing or non-numeric.
func namedValues(dataset *school.DatasetResult, metric string) ([]insight.RankedEntity, error) {
	if metric == "" {
		return nil, errors.NewValidationError("metric", "metric field is required", "")
	}

	nameField := displayNameField(dataset)
	ranked := make([]insight.RankedEntity, 0, len(dataset.Rows))
	for _, row := range dataset.Rows {
		v, ok := school.Float(row, metric)
		if !ok {
			continue
		}
		name := school.Text(row, nameField)
		if name == "" {
			continue
		}
		ranked = append(ranked, insight.RankedEntity{Name: name, Value: v})
	}
	if len(ranked) == 0 {
		return nil, errors.Wrapf(errors.ErrInsufficientData, "no usable values for metric %q", metric)
	}
	return ranked, nil
}

// displayNameField picks the field used to label records in rankings and
// outlier reports.
func displayNameField(dataset *school.DatasetResult) string {
	for _, candidate := range []string{"school_name", "district_name", "county", "name"} {
		for _, f := range dataset.Fields {
			if f == candidate {
				return candidate
			}
		}
	}
	if len(dataset.Fields) > 0 {
		return dataset.Fields[0]
	}
	return ""
}

// numericFields lists the dataset fields holding at least one numeric value,
// in warehouse-native order.
func numericFields(dataset *school.DatasetResult) []string {
	fields := make([]string, 0, len(dataset.Fields))
	for _, f := range dataset.Fields {
		for _, row := range dataset.Rows {
			if _, ok := school.Float(row, f); ok {
				fields = append(fields, f)
				break
			}
		}
	}
	return fields
}

func metricValues(dataset *school.DatasetResult, metric string) []float64 {
	values := make([]float64, 0, len(dataset.Rows))
	for _, row := range dataset.Rows {
		if v, ok := school.Float(row, metric); ok {
			values = append(values, v)
		}
	}
	return values
}

func sortRanked(ranked []insight.RankedEntity, ascending bool) {
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Value != ranked[j].Value {
			if ascending {
				return ranked[i].Value < ranked[j].Value
			}
			return ranked[i].Value > ranked[j].Value
		}
		return ranked[i].Name < ranked[j].Name
	})
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
