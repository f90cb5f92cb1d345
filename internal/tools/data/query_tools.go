package data

import (
	"encoding/json"

	adktool "google.golang.org/adk/tool"

	"edinsights/internal/domain/school"
	"edinsights/internal/tools/shared"
	"edinsights/pkg/errors"
)

// Each query tool is a thin ADK wrapper around the Service, so model-driven
// and orchestrator-driven calls go through the same validation path.
// Warehouse tools carry no retry middleware.

// NewDirectoryTool exposes the school directory query.
func NewDirectoryTool(svc *Service, deps shared.Deps) adktool.Tool {
	return queryTool(svc, deps, "query_school_directory",
		"List schools with enrollment, need, and class size metrics. Args: state, county, district, sort, limit.",
		school.KindDirectory)
}

// NewGraduationTool exposes overall-cohort graduation rates.
func NewGraduationTool(svc *Service, deps shared.Deps) adktool.Tool {
	return queryTool(svc, deps, "query_graduation_rates",
		"Overall-cohort graduation rates by school. Args: state, county, district, min_graduation_rate, sort, limit.",
		school.KindGraduation)
}

// NewDistrictFinanceTool exposes district finance figures.
func NewDistrictFinanceTool(svc *Service, deps shared.Deps) adktool.Tool {
	return queryTool(svc, deps, "query_district_finance",
		"District revenue, spending, and per-pupil figures. Args: state, county, district, sort, limit.",
		school.KindDistrictFinance)
}

// NewHighNeedLowTechTool exposes the high-need low-tech-spending research query.
func NewHighNeedLowTechTool(svc *Service, deps shared.Deps) adktool.Tool {
	return queryTool(svc, deps, "find_high_need_low_tech",
		"High-poverty districts with low technology spending per student. Args: state, county, sort, limit.",
		school.KindHighNeedLowTech)
}

// NewHighGradLowFundingTool exposes the high-graduation low-funding research query.
func NewHighGradLowFundingTool(svc *Service, deps shared.Deps) adktool.Tool {
	return queryTool(svc, deps, "find_high_grad_low_funding",
		"Schools graduating well despite below-average per-pupil funding. Args: state, county, min_graduation_rate, sort, limit.",
		school.KindHighGradLowFunding)
}

// NewSTEMLowClassSizeTool exposes the strong-STEM small-class research query.
func NewSTEMLowClassSizeTool(svc *Service, deps shared.Deps) adktool.Tool {
	return queryTool(svc, deps, "find_stem_low_class_size",
		"Schools with broad STEM offerings and small class sizes. Args: state, county, max_student_teacher_ratio, sort, limit.",
		school.KindSTEMLowClassSize)
}

// NewSTEMSearchTool exposes the STEM subject search.
func NewSTEMSearchTool(svc *Service, deps shared.Deps) adktool.Tool {
	return queryTool(svc, deps, "search_stem_schools",
		"Schools offering a specific STEM subject. Args: stem_subject, state, county, sort, limit.",
		school.KindSTEMSearch)
}

// queryKindByTool maps tool names back to the query kind they execute.
var queryKindByTool = map[string]school.QueryKind{
	"query_school_directory":     school.KindDirectory,
	"query_graduation_rates":     school.KindGraduation,
	"query_district_finance":     school.KindDistrictFinance,
	"find_high_need_low_tech":    school.KindHighNeedLowTech,
	"find_high_grad_low_funding": school.KindHighGradLowFunding,
	"find_stem_low_class_size":   school.KindSTEMLowClassSize,
	"search_stem_schools":        school.KindSTEMSearch,
}

// KindForTool resolves the query kind a tool name executes.
func KindForTool(name string) (school.QueryKind, bool) {
	kind, ok := queryKindByTool[name]
	return kind, ok
}

func queryTool(svc *Service, deps shared.Deps, name, description string, kind school.QueryKind) adktool.Tool {
	return shared.Middleware{}.WrapFunc(name, description,
		func(ctx adktool.Context, args map[string]interface{}) (map[string]interface{}, error) {
			filters := FiltersFromArgs(args)

			result, err := svc.Query(ctx, kind, filters)
			if err != nil {
				deps.Log.Warnf("%s failed: %v", name, err)
				return nil, errors.Wrapf(err, "%s", name)
			}

			return DatasetToMap(result), nil
		})
}

// FiltersFromArgs decodes loosely-typed model arguments into query filters.
// Unknown keys are ignored; wrong-typed values fall back to zero values.
func FiltersFromArgs(args map[string]interface{}) school.QueryFilters {
	filters := school.QueryFilters{
		State:       argString(args, "state"),
		County:      argString(args, "county"),
		District:    argString(args, "district"),
		STEMSubject: argString(args, "stem_subject"),
		SortBy:      argString(args, "sort"),
	}

	filters.MinGraduationRate = argFloat(args, "min_graduation_rate")
	filters.MaxStudentTeacher = argFloat(args, "max_student_teacher_ratio")
	filters.MinEnrollment = int(argFloat(args, "min_enrollment"))
	filters.Limit = int(argFloat(args, "limit"))

	return filters
}

// DatasetToMap converts a dataset to the map form function tools return.
func DatasetToMap(result *school.DatasetResult) map[string]interface{} {
	rows := make([]interface{}, 0, len(result.Rows))
	for _, row := range result.Rows {
		rows = append(rows, map[string]interface{}(row))
	}

	return map[string]interface{}{
		"kind":        string(result.Kind),
		"fields":      result.Fields,
		"rows":        rows,
		"row_count":   result.RowCount,
		"fingerprint": result.Fingerprint,
	}
}

func argString(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func argFloat(args map[string]interface{}, key string) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err == nil {
			return f
		}
	case string:
		var f float64
		if err := json.Unmarshal([]byte(v), &f); err == nil {
			return f
		}
	}
	return 0
}
