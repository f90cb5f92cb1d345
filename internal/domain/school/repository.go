package school

import "context"

// DefaultLimit caps result size when the caller does not ask for one.
const DefaultLimit = 100

// MaxLimit is the hard cap on rows any query may return.
const MaxLimit = 500

// Repository is the warehouse access contract for education data queries.
// Implementations must use parameterized SQL only and must be idempotent
// for identical filters against an unchanged warehouse.
type Repository interface {
	// Query executes the published query shape selected by kind.
	Query(ctx context.Context, kind QueryKind, filters QueryFilters) (*DatasetResult, error)

	// Health verifies warehouse connectivity.
	Health(ctx context.Context) error
}

// SortKeys lists the accepted values for QueryFilters.SortBy. Anything
// outside this whitelist is rejected before SQL is built.
func SortKeys() []string {
	return []string{
		"lowest_spending",
		"highest_spending",
		"lowest_graduation",
		"highest_graduation",
		"highest_need",
		"lowest_need",
		"largest_enrollment",
		"smallest_class_size",
	}
}

// ValidSortKey reports whether key is in the whitelist. The empty key is
// valid and keeps warehouse-native ordering.
func ValidSortKey(key string) bool {
	if key == "" {
		return true
	}
	for _, k := range SortKeys() {
		if k == key {
			return true
		}
	}
	return false
}
