package analysis

import (
	"encoding/json"

	adktool "google.golang.org/adk/tool"

	"edinsights/internal/domain/insight"
	"edinsights/internal/domain/school"
	"edinsights/internal/tools/shared"
	"edinsights/pkg/errors"
)

// Analysis tools operate on the dataset passed in the call arguments, in the
// shape data tools return. They never reach the warehouse or the model.

// NewRankTool exposes top/bottom ranking by a numeric metric.
func NewRankTool(svc *Service, deps shared.Deps) adktool.Tool {
	return analysisTool(svc, deps, "rank_by_metric",
		"Top and bottom records by a numeric metric. Args: dataset, metric, top_n.",
		insight.KindRanking)
}

// NewStatisticsTool exposes descriptive statistics.
func NewStatisticsTool(svc *Service, deps shared.Deps) adktool.Tool {
	return analysisTool(svc, deps, "calculate_statistics",
		"Mean, median, spread, and quartiles for a metric, or all numeric metrics when none is given. Args: dataset, metric.",
		insight.KindStatistics)
}

// NewCompareTool exposes grouped comparison of a metric.
func NewCompareTool(svc *Service, deps shared.Deps) adktool.Tool {
	return analysisTool(svc, deps, "compare_groups",
		"Compare a metric across groups such as counties or districts. Args: dataset, metric, group_by.",
		insight.KindComparison)
}

// NewTrendsTool exposes group-level leaders and laggards.
func NewTrendsTool(svc *Service, deps shared.Deps) adktool.Tool {
	return analysisTool(svc, deps, "identify_trends",
		"Group-level averages of a metric with leaders and laggards. Args: dataset, metric, group_by.",
		insight.KindTrend)
}

// NewOutliersTool exposes standard-deviation outlier detection.
func NewOutliersTool(svc *Service, deps shared.Deps) adktool.Tool {
	return analysisTool(svc, deps, "identify_outliers",
		"Records deviating beyond two standard deviations on a metric. Args: dataset, metric.",
		insight.KindOutliers)
}

// NewCorrelateTool exposes Pearson correlation between two metrics.
func NewCorrelateTool(svc *Service, deps shared.Deps) adktool.Tool {
	return analysisTool(svc, deps, "correlate_metrics",
		"Pearson correlation between two numeric metrics. Args: dataset, metric, metric_y.",
		insight.KindCorrelation)
}

// analysisKindByTool maps tool names back to the analysis kind they compute.
var analysisKindByTool = map[string]insight.Kind{
	"rank_by_metric":       insight.KindRanking,
	"calculate_statistics": insight.KindStatistics,
	"compare_groups":       insight.KindComparison,
	"identify_trends":      insight.KindTrend,
	"identify_outliers":    insight.KindOutliers,
	"correlate_metrics":    insight.KindCorrelation,
}

// KindForTool resolves the analysis kind a tool name computes.
func KindForTool(name string) (insight.Kind, bool) {
	kind, ok := analysisKindByTool[name]
	return kind, ok
}

func analysisTool(svc *Service, deps shared.Deps, name, description string, kind insight.Kind) adktool.Tool {
	return shared.Middleware{}.WrapFunc(name, description,
		func(ctx adktool.Context, args map[string]interface{}) (map[string]interface{}, error) {
			dataset, err := datasetFromArgs(args)
			if err != nil {
				return nil, errors.Wrapf(err, "%s", name)
			}

			req := RequestFromArgs(args)
			req.Kind = kind

			result, err := svc.Analyze(dataset, req)
			if err != nil {
				deps.Log.Warnf("%s failed: %v", name, err)
				return nil, errors.Wrapf(err, "%s", name)
			}

			return insightToMap(result)
		})
}

// RequestFromArgs decodes loosely-typed model arguments into an analysis
// request. The kind is set by the caller.
func RequestFromArgs(args map[string]interface{}) Request {
	req := Request{}
	if v, ok := args["metric"].(string); ok {
		req.Metric = v
	}
	if v, ok := args["metric_y"].(string); ok {
		req.MetricY = v
	}
	if v, ok := args["group_by"].(string); ok {
		req.GroupBy = v
	}
	if v, ok := args["top_n"].(float64); ok {
		req.TopN = int(v)
	}
	return req
}

// datasetFromArgs rebuilds a dataset from the map shape data tools return.
func datasetFromArgs(args map[string]interface{}) (*school.DatasetResult, error) {
	raw, ok := args["dataset"]
	if !ok || raw == nil {
		return nil, errors.NewValidationError("dataset", "dataset argument is required", nil)
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, errors.NewValidationError("dataset", "dataset is not serializable", nil)
	}
	var dataset school.DatasetResult
	if err := json.Unmarshal(data, &dataset); err != nil {
		return nil, errors.NewValidationError("dataset", "dataset has unexpected shape", nil)
	}
	return &dataset, nil
}

func insightToMap(result *insight.Insight) (map[string]interface{}, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, errors.Wrap(err, "encode insight")
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrap(err, "decode insight")
	}
	return out, nil
}
