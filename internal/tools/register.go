package tools

import (
	adktool "google.golang.org/adk/tool"

	"edinsights/internal/tools/analysis"
	"edinsights/internal/tools/data"
	"edinsights/internal/tools/shared"
)

// RegisterAllTools builds every tool against the shared dependencies and
// registers it. Data tools are skipped when no warehouse is wired; analysis
// tools are pure and always register.
func RegisterAllTools(registry *Registry, deps shared.Deps, dataSvc *data.Service, analysisSvc *analysis.Service) {
	log := deps.Log.With("component", "tool_registration")

	if dataSvc != nil {
		registry.Register("query_school_directory", data.NewDirectoryTool(dataSvc, deps))
		registry.Register("query_graduation_rates", data.NewGraduationTool(dataSvc, deps))
		registry.Register("query_district_finance", data.NewDistrictFinanceTool(dataSvc, deps))
		registry.Register("find_high_need_low_tech", data.NewHighNeedLowTechTool(dataSvc, deps))
		registry.Register("find_high_grad_low_funding", data.NewHighGradLowFundingTool(dataSvc, deps))
		registry.Register("find_stem_low_class_size", data.NewSTEMLowClassSizeTool(dataSvc, deps))
		registry.Register("search_stem_schools", data.NewSTEMSearchTool(dataSvc, deps))
		log.Debugf("Registered warehouse query tools")
	}

	if analysisSvc != nil {
		registry.Register("rank_by_metric", analysis.NewRankTool(analysisSvc, deps))
		registry.Register("calculate_statistics", analysis.NewStatisticsTool(analysisSvc, deps))
		registry.Register("compare_groups", analysis.NewCompareTool(analysisSvc, deps))
		registry.Register("identify_trends", analysis.NewTrendsTool(analysisSvc, deps))
		registry.Register("identify_outliers", analysis.NewOutliersTool(analysisSvc, deps))
		registry.Register("correlate_metrics", analysis.NewCorrelateTool(analysisSvc, deps))
		log.Debugf("Registered analysis tools")
	}

	log.Infof("Tool registration complete: %d tools available", len(registry.List()))
}

// ToolsForCategory resolves the registered tools belonging to one catalog
// category. Definitions with no registered tool are skipped.
func ToolsForCategory(registry *Registry, category string) []adktool.Tool {
	defs := DefinitionsByCategory(category)
	out := make([]adktool.Tool, 0, len(defs))
	for _, def := range defs {
		if t, ok := registry.Get(def.Name); ok {
			out = append(out, t)
		}
	}
	return out
}
