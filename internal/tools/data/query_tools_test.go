package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edinsights/internal/domain/school"
)

func TestFiltersFromArgs(t *testing.T) {
	args := map[string]interface{}{
		"state":                     "CA",
		"county":                    "Fresno",
		"min_graduation_rate":       85.0,
		"max_student_teacher_ratio": "18.5",
		"limit":                     float64(25),
		"sort":                      "highest_graduation",
		"unknown_key":               "ignored",
	}

	filters := FiltersFromArgs(args)

	assert.Equal(t, "CA", filters.State)
	assert.Equal(t, "Fresno", filters.County)
	assert.Equal(t, 85.0, filters.MinGraduationRate)
	assert.Equal(t, 18.5, filters.MaxStudentTeacher)
	assert.Equal(t, 25, filters.Limit)
	assert.Equal(t, "highest_graduation", filters.SortBy)
}

func TestFiltersFromArgsWrongTypesFallBackToZero(t *testing.T) {
	args := map[string]interface{}{
		"county": 42,
		"limit":  "not a number",
	}

	filters := FiltersFromArgs(args)
	assert.Empty(t, filters.County)
	assert.Zero(t, filters.Limit)
}

func TestKindForToolCoversEveryQueryTool(t *testing.T) {
	wantKinds := map[string]school.QueryKind{
		"query_school_directory":     school.KindDirectory,
		"query_graduation_rates":     school.KindGraduation,
		"query_district_finance":     school.KindDistrictFinance,
		"find_high_need_low_tech":    school.KindHighNeedLowTech,
		"find_high_grad_low_funding": school.KindHighGradLowFunding,
		"find_stem_low_class_size":   school.KindSTEMLowClassSize,
		"search_stem_schools":        school.KindSTEMSearch,
	}

	for name, want := range wantKinds {
		kind, ok := KindForTool(name)
		require.True(t, ok, name)
		assert.Equal(t, want, kind)
	}

	_, ok := KindForTool("place_order")
	assert.False(t, ok)
}

func TestDatasetToMap(t *testing.T) {
	dataset := testDataset(school.KindGraduation)

	m := DatasetToMap(dataset)
	assert.Equal(t, "graduation", m["kind"])
	assert.Equal(t, 1, m["row_count"])
	assert.Equal(t, dataset.Fingerprint, m["fingerprint"])

	rows, ok := m["rows"].([]interface{})
	require.True(t, ok)
	require.Len(t, rows, 1)
}
