package shared

import (
	"edinsights/internal/domain/school"
	"edinsights/pkg/logger"
)

// Deps bundles dependencies required by concrete tool implementations.
type Deps struct {
	SchoolRepo school.Repository
	Log        *logger.Logger
}

// HasWarehouse reports whether the school repository is wired.
func (d Deps) HasWarehouse() bool {
	return d.SchoolRepo != nil
}
