package tools

// Definition describes a tool's metadata for registration and documentation.
type Definition struct {
	Name        string
	Description string
	Category    string
}

// Categories partition tools by the agent allowed to hold them.
const (
	CategoryData     = "data"
	CategoryAnalysis = "analysis"
)

var toolDefinitions = []Definition{
	{Name: "query_school_directory", Description: "List schools with enrollment, need, and class size metrics", Category: CategoryData},
	{Name: "query_graduation_rates", Description: "Overall-cohort graduation rates by school", Category: CategoryData},
	{Name: "query_district_finance", Description: "District revenue, spending, and per-pupil figures", Category: CategoryData},
	{Name: "find_high_need_low_tech", Description: "High-poverty districts with low technology spending", Category: CategoryData},
	{Name: "find_high_grad_low_funding", Description: "Schools graduating well despite below-average funding", Category: CategoryData},
	{Name: "find_stem_low_class_size", Description: "Schools with broad STEM offerings and small classes", Category: CategoryData},
	{Name: "search_stem_schools", Description: "Schools offering a specific STEM subject", Category: CategoryData},

	{Name: "rank_by_metric", Description: "Top and bottom records by a numeric metric", Category: CategoryAnalysis},
	{Name: "calculate_statistics", Description: "Mean, median, spread, and quartiles for metrics", Category: CategoryAnalysis},
	{Name: "compare_groups", Description: "Compare a metric across groups such as counties", Category: CategoryAnalysis},
	{Name: "identify_trends", Description: "Group-level averages with leaders and laggards", Category: CategoryAnalysis},
	{Name: "identify_outliers", Description: "Records deviating beyond two standard deviations", Category: CategoryAnalysis},
	{Name: "correlate_metrics", Description: "Pearson correlation between two metrics", Category: CategoryAnalysis},
}

// Definitions exposes a copy of all tool definitions.
func Definitions() []Definition {
	defs := make([]Definition, len(toolDefinitions))
	copy(defs, toolDefinitions)
	return defs
}

// DefinitionsByCategory returns the definitions belonging to one category.
func DefinitionsByCategory(category string) []Definition {
	defs := make([]Definition, 0, len(toolDefinitions))
	for _, def := range toolDefinitions {
		if def.Category == category {
			defs = append(defs, def)
		}
	}
	return defs
}
