package data

import (
	"context"

	"edinsights/internal/domain/school"
	"edinsights/pkg/errors"
	"edinsights/pkg/logger"
)

// Service is the Data Tool: the only component allowed to touch the
// warehouse. It validates filters before any SQL is built and never retries
// failed queries.
type Service struct {
	repo school.Repository
	log  *logger.Logger
}

// NewService creates the data query service.
func NewService(repo school.Repository, log *logger.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With("component", "data_service"),
	}
}

// Query runs one published query shape. Identical filters against an
// unchanged warehouse return identical datasets.
func (s *Service) Query(ctx context.Context, kind school.QueryKind, filters school.QueryFilters) (*school.DatasetResult, error) {
	if !kind.Valid() {
		return nil, errors.NewValidationError("query", "unknown query kind", string(kind))
	}
	if !school.ValidSortKey(filters.SortBy) {
		return nil, errors.NewValidationError("sort", "sort key not in whitelist", filters.SortBy)
	}
	if filters.Limit < 0 {
		return nil, errors.NewValidationError("limit", "limit must not be negative", filters.Limit)
	}

	result, err := s.repo.Query(ctx, kind, filters)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidSortKey) || errors.Is(err, errors.ErrUnknownQueryKind) {
			return nil, errors.NewValidationError("query", err.Error(), string(kind))
		}
		s.log.Warnf("Warehouse query failed: kind=%s err=%v", kind, err)
		return nil, err
	}

	s.log.Debugf("Warehouse query complete: kind=%s rows=%d fingerprint=%s",
		kind, result.RowCount, result.Fingerprint)
	return result, nil
}

// Health reports warehouse reachability.
func (s *Service) Health(ctx context.Context) error {
	return s.repo.Health(ctx)
}
