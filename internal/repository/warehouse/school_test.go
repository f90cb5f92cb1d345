package warehouse

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edinsights/internal/domain/school"
	"edinsights/pkg/errors"
)

func newMockRepo(t *testing.T) (*SchoolRepository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := sqlx.NewDb(mockDB, "sqlmock")
	return NewSchoolRepository(db, 5*time.Second), mock
}

func TestQueryDirectoryWithStateFilter(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{
		"school_name", "district_name", "city", "county", "state",
		"latitude", "longitude", "enrollment", "teachers_fte",
		"low_income_pct", "student_teacher_ratio",
	}).AddRow("Lincoln High", "Fresno Unified", "Fresno", "Fresno", "CA",
		36.7, -119.8, 1200, 50.0, 62.5, 24.0)

	mock.ExpectQuery(`SELECT d\.school_name.+FROM ccd_directory d`).
		WithArgs("CA", school.DefaultLimit).
		WillReturnRows(rows)

	result, err := repo.Query(context.Background(), school.KindDirectory, school.QueryFilters{State: "CA"})
	require.NoError(t, err)

	assert.Equal(t, school.KindDirectory, result.Kind)
	assert.Equal(t, 1, result.RowCount)
	assert.Equal(t, "Lincoln High", school.Text(result.Rows[0], "school_name"))
	assert.NotEmpty(t, result.Fingerprint)

	// Fields preserve warehouse-native column order.
	assert.Equal(t, "school_name", result.Fields[0])
	assert.Equal(t, "student_teacher_ratio", result.Fields[len(result.Fields)-1])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryFinanceSortedByLowestSpending(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{
		"district_name", "county", "state", "enrollment",
		"total_revenue", "total_expenditure", "per_pupil_spending", "low_income_pct",
	})
	spendings := []float64{7100, 7900, 8200, 9400, 10100}
	for i, s := range spendings {
		rows.AddRow("District", "County", "CA", 1000+i, 9e6, 8e6, s, 40.0)
	}

	mock.ExpectQuery(`FROM district_finance f.+ORDER BY per_pupil_spending ASC`).
		WithArgs("CA", 5).
		WillReturnRows(rows)

	result, err := repo.Query(context.Background(), school.KindDistrictFinance, school.QueryFilters{
		State:  "CA",
		SortBy: "lowest_spending",
		Limit:  5,
	})
	require.NoError(t, err)
	require.Equal(t, 5, result.RowCount)

	// Rows come back ascending by spending.
	prev := -1.0
	for _, row := range result.Rows {
		v, ok := school.Float(row, "per_pupil_spending")
		require.True(t, ok)
		assert.GreaterOrEqual(t, v, prev)
		prev = v
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryRejectsInvalidSortKey(t *testing.T) {
	repo, _ := newMockRepo(t)

	_, err := repo.Query(context.Background(), school.KindDirectory, school.QueryFilters{
		SortBy: "enrollment; DROP TABLE ccd_directory",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidSortKey))
}

func TestQueryRejectsSortKeyUnsupportedForKind(t *testing.T) {
	repo, _ := newMockRepo(t)

	// lowest_spending is whitelisted globally but not valid for directory.
	_, err := repo.Query(context.Background(), school.KindDirectory, school.QueryFilters{
		SortBy: "lowest_spending",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidSortKey))
}

func TestQueryRejectsUnknownKind(t *testing.T) {
	repo, _ := newMockRepo(t)

	_, err := repo.Query(context.Background(), school.QueryKind("payroll"), school.QueryFilters{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnknownQueryKind))
}

func TestQueryMapsDriverFailureToDataUnavailable(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`FROM ccd_directory d`).
		WillReturnError(errors.New("connection refused"))

	_, err := repo.Query(context.Background(), school.KindDirectory, school.QueryFilters{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDataUnavailable))
}

func TestQueryClampsLimitToMax(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`FROM ccd_directory d`).
		WithArgs(school.MaxLimit).
		WillReturnRows(sqlmock.NewRows([]string{"school_name"}))

	_, err := repo.Query(context.Background(), school.KindDirectory, school.QueryFilters{Limit: 10000})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryIdempotentForIdenticalFilters(t *testing.T) {
	repo, mock := newMockRepo(t)

	for i := 0; i < 2; i++ {
		mock.ExpectQuery(`FROM ccd_directory d`).
			WithArgs("CA", school.DefaultLimit).
			WillReturnRows(sqlmock.NewRows([]string{"school_name", "enrollment"}).
				AddRow("Lincoln High", 1200).
				AddRow("Jefferson Middle", 800))
	}

	filters := school.QueryFilters{State: "CA"}
	first, err := repo.Query(context.Background(), school.KindDirectory, filters)
	require.NoError(t, err)
	second, err := repo.Query(context.Background(), school.KindDirectory, filters)
	require.NoError(t, err)

	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, first.Rows, second.Rows)
}
