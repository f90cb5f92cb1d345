package school

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
)

// QueryKind selects one of the published warehouse query shapes.
type QueryKind string

const (
	// KindDirectory lists schools with enrollment and need metrics.
	KindDirectory QueryKind = "school_directory"
	// KindGraduation returns overall-cohort graduation rates by school.
	KindGraduation QueryKind = "graduation"
	// KindDistrictFinance returns district revenue and spending.
	KindDistrictFinance QueryKind = "district_finance"
	// KindHighNeedLowTech finds high-poverty districts with low technology spending.
	KindHighNeedLowTech QueryKind = "high_need_low_tech"
	// KindHighGradLowFunding finds schools graduating well despite low per-pupil funding.
	KindHighGradLowFunding QueryKind = "high_grad_low_funding"
	// KindSTEMLowClassSize finds schools with strong STEM offerings and small classes.
	KindSTEMLowClassSize QueryKind = "stem_low_class_size"
	// KindSTEMSearch searches schools offering a specific STEM subject.
	KindSTEMSearch QueryKind = "stem_search"
)

// Valid reports whether the kind is one of the published query shapes.
func (k QueryKind) Valid() bool {
	switch k {
	case KindDirectory, KindGraduation, KindDistrictFinance,
		KindHighNeedLowTech, KindHighGradLowFunding,
		KindSTEMLowClassSize, KindSTEMSearch:
		return true
	}
	return false
}

// QueryFilters narrows a warehouse query. Zero values mean "not filtered".
type QueryFilters struct {
	State             string  `json:"state,omitempty"`
	County            string  `json:"county,omitempty"`
	District          string  `json:"district,omitempty"`
	STEMSubject       string  `json:"stem_subject,omitempty"`
	MinGraduationRate float64 `json:"min_graduation_rate,omitempty"`
	MaxStudentTeacher float64 `json:"max_student_teacher_ratio,omitempty"`
	MinEnrollment     int     `json:"min_enrollment,omitempty"`
	SortBy            string  `json:"sort,omitempty"`
	Limit             int     `json:"limit,omitempty"`
}

// Row is a single result record keyed by warehouse column name.
type Row map[string]interface{}

// DatasetResult is the unit of exchange between the data tool, the insights
// tool, and the formatter. Fields preserves warehouse-native column order.
type DatasetResult struct {
	Kind        QueryKind    `json:"kind"`
	Filters     QueryFilters `json:"filters"`
	Fields      []string     `json:"fields"`
	Rows        []Row        `json:"rows"`
	RowCount    int          `json:"row_count"`
	Fingerprint string       `json:"fingerprint"`
}

// Empty reports whether the dataset holds no rows.
func (d *DatasetResult) Empty() bool {
	return d == nil || len(d.Rows) == 0
}

// Seal computes RowCount and a content fingerprint. Insights carry the
// fingerprint so every analysis stays traceable to the exact dataset it
// was computed from.
func (d *DatasetResult) Seal() {
	d.RowCount = len(d.Rows)
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|", d.Kind, d.RowCount)
	if data, err := json.Marshal(d.Rows); err == nil {
		h.Write(data)
	}
	d.Fingerprint = hex.EncodeToString(h.Sum(nil))[:16]
}

// Float extracts a numeric field from a row, coercing the types SQL drivers
// commonly hand back (float64, int64, numeric-as-bytes, string).
func Float(row Row, field string) (float64, bool) {
	v, ok := row[field]
	if !ok || v == nil {
		return 0, false
	}

	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case []byte:
		f, err := strconv.ParseFloat(string(n), 64)
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Text extracts a string field from a row.
func Text(row Row, field string) string {
	v, ok := row[field]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	}
	return fmt.Sprintf("%v", v)
}

// Coordinates extracts a valid latitude/longitude pair from a row. Both must
// be present, parseable, and inside world bounds; anything else is treated
// as missing.
func Coordinates(row Row) (lat, lng float64, ok bool) {
	lat, latOK := Float(row, "latitude")
	lng, lngOK := Float(row, "longitude")
	if !latOK || !lngOK {
		return 0, 0, false
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, false
	}
	if lat == 0 && lng == 0 {
		return 0, 0, false
	}
	return lat, lng, true
}
