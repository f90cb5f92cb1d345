package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"edinsights/internal/domain/school"
	"edinsights/internal/metrics"
	"edinsights/pkg/errors"
)

// SchoolRepository serves the published education data queries from the SQL
// warehouse. All statements are parameterized; user input never reaches SQL
// text directly.
type SchoolRepository struct {
	db           *sqlx.DB
	queryTimeout time.Duration
}

// NewSchoolRepository creates a warehouse-backed school repository.
func NewSchoolRepository(db *sqlx.DB, queryTimeout time.Duration) *SchoolRepository {
	if queryTimeout <= 0 {
		queryTimeout = 30 * time.Second
	}
	return &SchoolRepository{db: db, queryTimeout: queryTimeout}
}

// Compile-time interface check
var _ school.Repository = (*SchoolRepository)(nil)

// Query executes the query shape selected by kind and returns a sealed
// dataset. Warehouse failures surface as ErrDataUnavailable; there is no
// automatic retry.
func (r *SchoolRepository) Query(ctx context.Context, kind school.QueryKind, filters school.QueryFilters) (*school.DatasetResult, error) {
	if !kind.Valid() {
		return nil, errors.Wrapf(errors.ErrUnknownQueryKind, "%s", kind)
	}
	if !school.ValidSortKey(filters.SortBy) {
		return nil, errors.Wrapf(errors.ErrInvalidSortKey, "%s", filters.SortBy)
	}

	query, args, err := buildQuery(kind, filters)
	if err != nil {
		return nil, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	start := time.Now()
	rows, err := r.db.QueryxContext(queryCtx, query, args...)
	if err != nil {
		metrics.RecordWarehouseQuery(string(kind), time.Since(start), 0, err)
		return nil, mapWarehouseError(err, kind)
	}
	defer rows.Close()

	fields, err := rows.Columns()
	if err != nil {
		return nil, mapWarehouseError(err, kind)
	}

	result := &school.DatasetResult{
		Kind:    kind,
		Filters: filters,
		Fields:  fields,
		Rows:    []school.Row{},
	}

	for rows.Next() {
		row := map[string]interface{}{}
		if err := rows.MapScan(row); err != nil {
			metrics.RecordWarehouseQuery(string(kind), time.Since(start), 0, err)
			return nil, mapWarehouseError(err, kind)
		}
		result.Rows = append(result.Rows, normalizeRow(row))
	}
	if err := rows.Err(); err != nil {
		metrics.RecordWarehouseQuery(string(kind), time.Since(start), 0, err)
		return nil, mapWarehouseError(err, kind)
	}

	result.Seal()
	metrics.RecordWarehouseQuery(string(kind), time.Since(start), result.RowCount, nil)
	return result, nil
}

// Health verifies warehouse connectivity.
func (r *SchoolRepository) Health(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// normalizeRow converts driver byte slices to strings so rows marshal to
// JSON as text rather than base64.
func normalizeRow(row map[string]interface{}) school.Row {
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
		}
	}
	return row
}

func mapWarehouseError(err error, kind school.QueryKind) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrapf(errors.ErrDataUnavailable, "query %s timed out: %v", kind, err)
	}
	if errors.Is(err, sql.ErrNoRows) {
		// An empty result is not an error for set queries; this only fires
		// for scalar subselect paths.
		return errors.Wrapf(errors.ErrDataUnavailable, "query %s returned no reference rows", kind)
	}
	return errors.Wrapf(errors.ErrDataUnavailable, "query %s failed: %v", kind, err)
}

// buildQuery assembles the SQL text and positional args for a query kind.
func buildQuery(kind school.QueryKind, filters school.QueryFilters) (string, []interface{}, error) {
	b := newQueryBuilder()

	// suffix carries GROUP BY / HAVING clauses that must follow the filters.
	var base, suffix string
	switch kind {
	case school.KindDirectory:
		base = directoryQuery
		b.filterText("d.state", filters.State)
		b.filterText("d.county", filters.County)
		b.filterText("d.district_name", filters.District)
		b.filterMin("d.enrollment", filters.MinEnrollment)

	case school.KindGraduation:
		base = graduationQuery
		b.filterText("d.state", filters.State)
		b.filterText("d.county", filters.County)
		b.filterText("d.district_name", filters.District)
		b.filterMinFloat("g.grad_rate_midpt", filters.MinGraduationRate)

	case school.KindDistrictFinance:
		base = districtFinanceQuery
		b.filterText("d.state", filters.State)
		b.filterText("d.county", filters.County)
		b.filterText("d.district_name", filters.District)

	case school.KindHighNeedLowTech:
		base = highNeedLowTechQuery
		b.filterText("d.state", filters.State)
		b.filterText("d.county", filters.County)

	case school.KindHighGradLowFunding:
		base = highGradLowFundingQuery
		minGrad := filters.MinGraduationRate
		if minGrad <= 0 {
			minGrad = 85
		}
		b.where = append(b.where, fmt.Sprintf("g.grad_rate_midpt >= $%d", b.next()))
		b.args = append(b.args, minGrad)
		b.filterText("d.state", filters.State)
		b.filterText("d.county", filters.County)

	case school.KindSTEMLowClassSize:
		base = stemLowClassSizeQuery
		suffix = stemLowClassSizeSuffix
		maxRatio := filters.MaxStudentTeacher
		if maxRatio <= 0 {
			maxRatio = 20
		}
		b.where = append(b.where, fmt.Sprintf("d.enrollment / NULLIF(d.teachers_fte, 0) <= $%d", b.next()))
		b.args = append(b.args, maxRatio)
		b.filterText("d.state", filters.State)
		b.filterText("d.county", filters.County)

	case school.KindSTEMSearch:
		base = stemSearchQuery
		if filters.STEMSubject != "" {
			b.where = append(b.where, fmt.Sprintf("sc.subject ILIKE $%d", b.next()))
			b.args = append(b.args, "%"+filters.STEMSubject+"%")
		}
		b.filterText("d.state", filters.State)
		b.filterText("d.county", filters.County)

	default:
		return "", nil, errors.Wrapf(errors.ErrUnknownQueryKind, "%s", kind)
	}

	query := base
	if len(b.where) > 0 {
		query += " AND " + strings.Join(b.where, " AND ")
	}
	query += suffix

	order, err := orderClause(kind, filters.SortBy)
	if err != nil {
		return "", nil, err
	}
	query += order

	limit := filters.Limit
	if limit <= 0 {
		limit = school.DefaultLimit
	}
	if limit > school.MaxLimit {
		limit = school.MaxLimit
	}
	query += fmt.Sprintf(" LIMIT $%d", b.next())
	b.args = append(b.args, limit)

	return query, b.args, nil
}

type queryBuilder struct {
	where []string
	args  []interface{}
	n     int
}

func newQueryBuilder() *queryBuilder {
	return &queryBuilder{}
}

func (b *queryBuilder) next() int {
	b.n++
	return b.n
}

func (b *queryBuilder) filterText(column, value string) {
	if value == "" {
		return
	}
	b.where = append(b.where, fmt.Sprintf("%s = $%d", column, b.next()))
	b.args = append(b.args, value)
}

func (b *queryBuilder) filterMin(column string, value int) {
	if value <= 0 {
		return
	}
	b.where = append(b.where, fmt.Sprintf("%s >= $%d", column, b.next()))
	b.args = append(b.args, value)
}

func (b *queryBuilder) filterMinFloat(column string, value float64) {
	if value <= 0 {
		return
	}
	b.where = append(b.where, fmt.Sprintf("%s >= $%d", column, b.next()))
	b.args = append(b.args, value)
}

// orderClause maps a whitelisted sort key onto the ORDER BY expression valid
// for the query kind. Sorting stays warehouse-native when no key is given.
func orderClause(kind school.QueryKind, sortBy string) (string, error) {
	if sortBy == "" {
		return "", nil
	}

	kindSorts, ok := sortableColumns[kind]
	if !ok {
		return "", errors.Wrapf(errors.ErrInvalidSortKey, "%s does not support sorting", kind)
	}
	expr, ok := kindSorts[sortBy]
	if !ok {
		return "", errors.Wrapf(errors.ErrInvalidSortKey, "%s not supported for %s", sortBy, kind)
	}
	return " ORDER BY " + expr, nil
}

// sortableColumns whitelists ORDER BY expressions per query kind. Sort keys
// never interpolate user text into SQL.
var sortableColumns = map[school.QueryKind]map[string]string{
	school.KindDirectory: {
		"highest_need":        "low_income_pct DESC NULLS LAST",
		"lowest_need":         "low_income_pct ASC NULLS LAST",
		"largest_enrollment":  "d.enrollment DESC NULLS LAST",
		"smallest_class_size": "student_teacher_ratio ASC NULLS LAST",
	},
	school.KindGraduation: {
		"lowest_graduation":  "g.grad_rate_midpt ASC NULLS LAST",
		"highest_graduation": "g.grad_rate_midpt DESC NULLS LAST",
		"largest_enrollment": "d.enrollment DESC NULLS LAST",
	},
	school.KindDistrictFinance: {
		"lowest_spending":  "per_pupil_spending ASC NULLS LAST",
		"highest_spending": "per_pupil_spending DESC NULLS LAST",
		"highest_need":     "low_income_pct DESC NULLS LAST",
	},
	school.KindHighNeedLowTech: {
		"highest_need":    "low_income_pct DESC NULLS LAST",
		"lowest_spending": "tech_spending_per_student ASC NULLS LAST",
	},
	school.KindHighGradLowFunding: {
		"highest_graduation": "g.grad_rate_midpt DESC NULLS LAST",
		"lowest_spending":    "per_pupil_spending ASC NULLS LAST",
	},
	school.KindSTEMLowClassSize: {
		"smallest_class_size": "student_teacher_ratio ASC NULLS LAST",
		"largest_enrollment":  "d.enrollment DESC NULLS LAST",
	},
	school.KindSTEMSearch: {
		"largest_enrollment":  "d.enrollment DESC NULLS LAST",
		"smallest_class_size": "student_teacher_ratio ASC NULLS LAST",
	},
}

// Published query shapes. Join keys follow the warehouse schema: schools are
// keyed by ncessch, districts by leaid, and STEM course records join through
// combokey = leaid || school_id.
const (
	directoryQuery = `SELECT d.school_name, d.district_name, d.city, d.county, d.state,
	d.latitude, d.longitude, d.enrollment, d.teachers_fte,
	ROUND(d.free_lunch::numeric / NULLIF(d.enrollment, 0) * 100, 1) AS low_income_pct,
	ROUND(d.enrollment::numeric / NULLIF(d.teachers_fte, 0), 1) AS student_teacher_ratio
FROM ccd_directory d
WHERE d.enrollment > 0`

	graduationQuery = `SELECT d.school_name, d.district_name, d.county, d.state,
	d.latitude, d.longitude, d.enrollment,
	g.grad_rate_midpt AS graduation_rate, g.cohort_size
FROM graduation_rates g
JOIN ccd_directory d ON g.ncessch = d.ncessch
WHERE g.race = 99 AND g.disability = 99`

	districtFinanceQuery = `SELECT d.district_name, d.county, d.state,
	f.enrollment_fall AS enrollment, f.total_revenue, f.total_expenditure,
	ROUND(f.total_expenditure::numeric / NULLIF(f.enrollment_fall, 0), 0) AS per_pupil_spending,
	ROUND(f.free_lunch::numeric / NULLIF(f.enrollment_fall, 0) * 100, 1) AS low_income_pct
FROM district_finance f
JOIN (SELECT DISTINCT leaid, district_name, county, state FROM ccd_directory) d
	ON f.leaid = d.leaid
WHERE f.enrollment_fall > 0`

	highNeedLowTechQuery = `SELECT d.district_name, d.county, d.state,
	f.enrollment_fall AS enrollment,
	ROUND(f.free_lunch::numeric / NULLIF(f.enrollment_fall, 0) * 100, 1) AS low_income_pct,
	ROUND(f.tech_expenditure::numeric / NULLIF(f.enrollment_fall, 0), 0) AS tech_spending_per_student
FROM district_finance f
JOIN (SELECT DISTINCT leaid, district_name, county, state FROM ccd_directory) d
	ON f.leaid = d.leaid
WHERE f.enrollment_fall > 0
	AND f.free_lunch::numeric / NULLIF(f.enrollment_fall, 0) * 100 > 40`

	highGradLowFundingQuery = `SELECT d.school_name, d.district_name, d.county, d.state,
	d.latitude, d.longitude, d.enrollment,
	g.grad_rate_midpt AS graduation_rate,
	ROUND(f.total_expenditure::numeric / NULLIF(f.enrollment_fall, 0), 0) AS per_pupil_spending
FROM graduation_rates g
JOIN ccd_directory d ON g.ncessch = d.ncessch
JOIN district_finance f ON d.leaid = f.leaid
WHERE g.race = 99 AND g.disability = 99
	AND f.enrollment_fall > 0
	AND f.total_expenditure::numeric / NULLIF(f.enrollment_fall, 0) <
		(SELECT AVG(total_expenditure::numeric / NULLIF(enrollment_fall, 0))
		 FROM district_finance WHERE enrollment_fall > 0)`

	stemLowClassSizeQuery = `SELECT d.school_name, d.district_name, d.county, d.state,
	d.latitude, d.longitude, d.enrollment,
	ROUND(d.enrollment::numeric / NULLIF(d.teachers_fte, 0), 1) AS student_teacher_ratio,
	COUNT(DISTINCT sc.subject) AS stem_subjects
FROM ccd_directory d
JOIN stem_courses sc ON CONCAT(d.leaid, d.school_id) = sc.combokey
WHERE d.teachers_fte > 0`

	stemLowClassSizeSuffix = `
GROUP BY d.school_name, d.district_name, d.county, d.state,
	d.latitude, d.longitude, d.enrollment, d.teachers_fte
HAVING COUNT(DISTINCT sc.subject) >= 3`

	stemSearchQuery = `SELECT d.school_name, d.district_name, d.county, d.state,
	d.latitude, d.longitude, d.enrollment,
	sc.subject, sc.course_count,
	ROUND(d.enrollment::numeric / NULLIF(d.teachers_fte, 0), 1) AS student_teacher_ratio
FROM ccd_directory d
JOIN stem_courses sc ON CONCAT(d.leaid, d.school_id) = sc.combokey
WHERE d.enrollment > 0`
)
