package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edinsights/internal/domain/school"
	"edinsights/pkg/errors"
	"edinsights/pkg/logger"
)

type fakeRepo struct {
	lastKind    school.QueryKind
	lastFilters school.QueryFilters
	result      *school.DatasetResult
	err         error
	calls       int
}

func (f *fakeRepo) Query(_ context.Context, kind school.QueryKind, filters school.QueryFilters) (*school.DatasetResult, error) {
	f.calls++
	f.lastKind = kind
	f.lastFilters = filters
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeRepo) Health(_ context.Context) error { return f.err }

func testDataset(kind school.QueryKind) *school.DatasetResult {
	d := &school.DatasetResult{
		Kind:   kind,
		Fields: []string{"school_name", "graduation_rate"},
		Rows: []school.Row{
			{"school_name": "Jefferson High", "graduation_rate": 92.5},
		},
	}
	d.Seal()
	return d
}

func newTestService(t *testing.T, repo school.Repository) *Service {
	t.Helper()
	require.NoError(t, logger.Init("error", "test"))
	return NewService(repo, logger.Get())
}

func TestQueryPassesThrough(t *testing.T) {
	repo := &fakeRepo{result: testDataset(school.KindGraduation)}
	svc := newTestService(t, repo)

	filters := school.QueryFilters{County: "Alameda", SortBy: "highest_graduation", Limit: 10}
	result, err := svc.Query(context.Background(), school.KindGraduation, filters)
	require.NoError(t, err)

	assert.Equal(t, school.KindGraduation, repo.lastKind)
	assert.Equal(t, "Alameda", repo.lastFilters.County)
	assert.Equal(t, 1, result.RowCount)
	assert.NotEmpty(t, result.Fingerprint)
}

func TestQueryRejectsUnknownKind(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(t, repo)

	_, err := svc.Query(context.Background(), school.QueryKind("astrology"), school.QueryFilters{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
	assert.Zero(t, repo.calls, "invalid kind must be rejected before the warehouse is touched")
}

func TestQueryRejectsUnknownSortKey(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(t, repo)

	_, err := svc.Query(context.Background(), school.KindDirectory, school.QueryFilters{SortBy: "by_vibes"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
	assert.Zero(t, repo.calls)
}

func TestQueryRejectsNegativeLimit(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(t, repo)

	_, err := svc.Query(context.Background(), school.KindDirectory, school.QueryFilters{Limit: -1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestQueryNeverRetriesWarehouseFailures(t *testing.T) {
	repo := &fakeRepo{err: errors.Wrap(errors.ErrDataUnavailable, "connection refused")}
	svc := newTestService(t, repo)

	_, err := svc.Query(context.Background(), school.KindDirectory, school.QueryFilters{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDataUnavailable))
	assert.Equal(t, 1, repo.calls, "warehouse queries must not be retried")
}
