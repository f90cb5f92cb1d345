package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edinsights/internal/domain/insight"
	"edinsights/internal/domain/school"
	"edinsights/pkg/errors"
	"edinsights/pkg/logger"
)

func testService(t *testing.T) *Service {
	t.Helper()
	require.NoError(t, logger.Init("error", "test"))
	return NewService(logger.Get())
}

func gradDataset() *school.DatasetResult {
	d := &school.DatasetResult{
		Kind:   school.KindGraduation,
		Fields: []string{"school_name", "county", "graduation_rate"},
		Rows: []school.Row{
			{"school_name": "Jefferson High", "county": "Alameda", "graduation_rate": 92.5},
			{"school_name": "Lincoln High", "county": "Alameda", "graduation_rate": 88.0},
			{"school_name": "Roosevelt High", "county": "Fresno", "graduation_rate": 71.0},
			{"school_name": "Washington High", "county": "Fresno", "graduation_rate": 64.5},
			{"school_name": "Madison High", "county": "Kern", "graduation_rate": 95.0},
		},
	}
	d.Seal()
	return d
}

func TestAnalyzeRanking(t *testing.T) {
	svc := testService(t)
	ds := gradDataset()

	out, err := svc.Analyze(ds, Request{Kind: insight.KindRanking, Metric: "graduation_rate"})
	require.NoError(t, err)

	require.Len(t, out.Top, 3)
	require.Len(t, out.Bottom, 3)
	assert.Equal(t, "Madison High", out.Top[0].Name)
	assert.Equal(t, 95.0, out.Top[0].Value)
	assert.Equal(t, "Washington High", out.Bottom[0].Name)
	assert.Equal(t, ds.Fingerprint, out.DatasetFingerprint)
	assert.NotEmpty(t, out.Observations)
}

func TestAnalyzeRankingDeterministic(t *testing.T) {
	svc := testService(t)
	ds := gradDataset()
	req := Request{Kind: insight.KindRanking, Metric: "graduation_rate", TopN: 2}

	first, err := svc.Analyze(ds, req)
	require.NoError(t, err)
	second, err := svc.Analyze(ds, req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAnalyzeStatistics(t *testing.T) {
	svc := testService(t)

	out, err := svc.Analyze(gradDataset(), Request{Kind: insight.KindStatistics, Metric: "graduation_rate"})
	require.NoError(t, err)

	require.Len(t, out.Statistics, 1)
	stats := out.Statistics[0]
	assert.Equal(t, "graduation_rate", stats.Metric)
	assert.Equal(t, 5, stats.Count)
	assert.InDelta(t, 82.2, stats.Mean, 1e-9)
	assert.Equal(t, 88.0, stats.Median)
	assert.Equal(t, 64.5, stats.Min)
	assert.Equal(t, 95.0, stats.Max)
}

func TestAnalyzeStatisticsAllNumericFields(t *testing.T) {
	svc := testService(t)

	out, err := svc.Analyze(gradDataset(), Request{Kind: insight.KindStatistics})
	require.NoError(t, err)

	require.Len(t, out.Statistics, 1)
	assert.Equal(t, "graduation_rate", out.Statistics[0].Metric)
}

func TestAnalyzeComparisonGroups(t *testing.T) {
	svc := testService(t)

	out, err := svc.Analyze(gradDataset(), Request{
		Kind: insight.KindComparison, Metric: "graduation_rate", GroupBy: "county",
	})
	require.NoError(t, err)

	require.Len(t, out.Groups, 3)
	assert.Equal(t, "Kern", out.Groups[0].Group)
	assert.Equal(t, 95.0, out.Groups[0].Mean)
	assert.Equal(t, "Fresno", out.Groups[2].Group)
	assert.InDelta(t, 67.75, out.Groups[2].Mean, 1e-9)
}

func TestAnalyzeComparisonRequiresGroupBy(t *testing.T) {
	svc := testService(t)

	_, err := svc.Analyze(gradDataset(), Request{Kind: insight.KindComparison, Metric: "graduation_rate"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestAnalyzeOutliers(t *testing.T) {
	svc := testService(t)

	rows := make([]school.Row, 0, 21)
	for i := 0; i < 20; i++ {
		rows = append(rows, school.Row{"school_name": schoolName(i), "low_income_pct": 50.0})
	}
	rows = append(rows, school.Row{"school_name": "Far Out High", "low_income_pct": 95.0})
	ds := &school.DatasetResult{
		Kind:   school.KindDirectory,
		Fields: []string{"school_name", "low_income_pct"},
		Rows:   rows,
	}
	ds.Seal()

	out, err := svc.Analyze(ds, Request{Kind: insight.KindOutliers, Metric: "low_income_pct"})
	require.NoError(t, err)

	require.Len(t, out.Outliers, 1)
	assert.Equal(t, "Far Out High", out.Outliers[0].Name)
	assert.Greater(t, out.Outliers[0].Deviation, 2.0)
}

func TestAnalyzeCorrelation(t *testing.T) {
	svc := testService(t)

	ds := &school.DatasetResult{
		Kind:   school.KindDirectory,
		Fields: []string{"school_name", "enrollment", "teachers_fte"},
		Rows: []school.Row{
			{"school_name": "A", "enrollment": 100.0, "teachers_fte": 5.0},
			{"school_name": "B", "enrollment": 200.0, "teachers_fte": 10.0},
			{"school_name": "C", "enrollment": 400.0, "teachers_fte": 20.0},
		},
	}
	ds.Seal()

	out, err := svc.Analyze(ds, Request{
		Kind: insight.KindCorrelation, Metric: "enrollment", MetricY: "teachers_fte",
	})
	require.NoError(t, err)

	require.NotNil(t, out.Correlation)
	assert.InDelta(t, 1.0, out.Correlation.Coefficient, 1e-9)
	assert.Equal(t, 3, out.Correlation.SampleSize)
}

func TestAnalyzeEmptyDataset(t *testing.T) {
	svc := testService(t)

	ds := &school.DatasetResult{Kind: school.KindGraduation, Fields: []string{"school_name"}}
	ds.Seal()

	_, err := svc.Analyze(ds, Request{Kind: insight.KindStatistics, Metric: "graduation_rate"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientData))
}

func TestAnalyzeMissingMetric(t *testing.T) {
	svc := testService(t)

	_, err := svc.Analyze(gradDataset(), Request{Kind: insight.KindRanking, Metric: "per_pupil_spending"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientData))
}

func TestAnalyzeUnknownKind(t *testing.T) {
	svc := testService(t)

	_, err := svc.Analyze(gradDataset(), Request{Kind: insight.Kind("regression"), Metric: "graduation_rate"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func schoolName(i int) string {
	return "School " + string(rune('A'+i))
}
