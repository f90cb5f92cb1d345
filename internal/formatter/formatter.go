package formatter

import (
	"fmt"

	"edinsights/internal/adapters/config"
	"edinsights/internal/domain/insight"
	"edinsights/internal/domain/school"
	"edinsights/pkg/logger"
)

// EmptyResultMessage is returned when a query matched nothing. The request
// still succeeds; an empty dataset is an answer, not an error.
const EmptyResultMessage = "No schools found matching your criteria."

// maxChartSeries bounds how many metrics a single chart carries.
const maxChartSeries = 3

// ResponsePayload is the structured chat response. Every numeric value in it
// comes straight from the dataset or a computed insight; the formatter never
// rounds, rescales, or invents numbers.
type ResponsePayload struct {
	Summary  string             `json:"summary"`
	Charts   []Chart            `json:"charts,omitempty"`
	Map      *MapView           `json:"map,omitempty"`
	Table    *Table             `json:"table,omitempty"`
	Insights []*insight.Insight `json:"insights,omitempty"`
	Meta     Meta               `json:"meta"`
}

// Chart is one renderable chart, one series per metric.
type Chart struct {
	Title  string   `json:"title"`
	Type   string   `json:"type"` // currently always "bar"
	Labels []string `json:"labels"`
	Series []Series `json:"series"`
}

// Series holds the values of one metric, aligned with the chart labels.
// Reference carries the metric's dataset-wide mean when a statistics insight
// computed one, for rendering as a reference line.
type Series struct {
	Metric    string    `json:"metric"`
	Values    []float64 `json:"values"`
	Reference *float64  `json:"reference,omitempty"`
}

// MapView carries location markers. Present only when a Maps API key is
// configured.
type MapView struct {
	Markers []Marker `json:"markers"`
}

// Marker is one mappable school with validated coordinates.
type Marker struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Table mirrors the dataset: all fields in warehouse-native column order.
type Table struct {
	Fields []string     `json:"fields"`
	Rows   []school.Row `json:"rows"`
}

// Meta ties the response to the dataset it was built from.
type Meta struct {
	QueryKind   string `json:"query_kind,omitempty"`
	RowCount    int    `json:"row_count"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// Input gathers everything one response is assembled from.
type Input struct {
	Narrative string
	Dataset   *school.DatasetResult
	Insights  []*insight.Insight

	WantChart bool
	WantMap   bool
	WantTable bool
}

// Formatter assembles response payloads. Map output is gated on the Maps
// config so a missing API key degrades to a response without markers.
type Formatter struct {
	maps config.MapsConfig
	log  *logger.Logger
}

// New creates a formatter.
func New(maps config.MapsConfig, log *logger.Logger) *Formatter {
	return &Formatter{maps: maps, log: log.With("component", "formatter")}
}

// Build renders the response payload for one turn.
func (f *Formatter) Build(in Input) *ResponsePayload {
	payload := &ResponsePayload{
		Summary:  in.Narrative,
		Insights: in.Insights,
	}

	if in.Dataset == nil || in.Dataset.Empty() {
		if payload.Summary == "" {
			payload.Summary = EmptyResultMessage
		}
		if in.Dataset != nil {
			payload.Meta = Meta{
				QueryKind:   string(in.Dataset.Kind),
				RowCount:    0,
				Fingerprint: in.Dataset.Fingerprint,
			}
		}
		return payload
	}

	payload.Meta = Meta{
		QueryKind:   string(in.Dataset.Kind),
		RowCount:    in.Dataset.RowCount,
		Fingerprint: in.Dataset.Fingerprint,
	}
	if payload.Summary == "" {
		payload.Summary = fallbackSummary(in.Dataset)
	}

	if in.WantChart {
		if chart := buildChart(in.Dataset); chart != nil {
			attachReferences(chart, in.Insights)
			payload.Charts = append(payload.Charts, *chart)
		}
	}
	if in.WantMap && f.maps.Enabled() {
		if mv := buildMap(in.Dataset); mv != nil {
			payload.Map = mv
		}
	}
	if in.WantTable {
		payload.Table = &Table{Fields: in.Dataset.Fields, Rows: in.Dataset.Rows}
	}

	return payload
}

// buildChart produces one bar chart with a series per numeric metric, labeled
// by the dataset's name field. Returns nil when nothing is chartable.
func buildChart(dataset *school.DatasetResult) *Chart {
	nameField := displayNameField(dataset)
	if nameField == "" {
		return nil
	}

	metrics := chartableMetrics(dataset, nameField)
	if len(metrics) == 0 {
		return nil
	}
	if len(metrics) > maxChartSeries {
		metrics = metrics[:maxChartSeries]
	}

	labels := make([]string, 0, len(dataset.Rows))
	series := make([]Series, len(metrics))
	for i, metric := range metrics {
		series[i] = Series{Metric: metric, Values: make([]float64, 0, len(dataset.Rows))}
	}

	for _, row := range dataset.Rows {
		// Keep labels and all series aligned: skip rows missing any metric.
		values := make([]float64, len(metrics))
		complete := true
		for i, metric := range metrics {
			v, ok := school.Float(row, metric)
			if !ok {
				complete = false
				break
			}
			values[i] = v
		}
		if !complete {
			continue
		}

		labels = append(labels, school.Text(row, nameField))
		for i := range metrics {
			series[i].Values = append(series[i].Values, values[i])
		}
	}
	if len(labels) == 0 {
		return nil
	}

	return &Chart{
		Title:  fmt.Sprintf("%s by %s", metrics[0], nameField),
		Type:   "bar",
		Labels: labels,
		Series: series,
	}
}

// attachReferences adds the mean computed by a statistics insight as the
// reference value of the matching series. The mean is the insight's own
// aggregate, never recomputed here.
func attachReferences(chart *Chart, insights []*insight.Insight) {
	for _, ins := range insights {
		if ins == nil || ins.Kind != insight.KindStatistics {
			continue
		}
		for _, stat := range ins.Statistics {
			for i := range chart.Series {
				if chart.Series[i].Metric == stat.Metric && chart.Series[i].Reference == nil {
					mean := stat.Mean
					chart.Series[i].Reference = &mean
				}
			}
		}
	}
}

// buildMap collects markers for rows carrying a valid coordinate pair. Rows
// without usable coordinates are skipped, never guessed.
func buildMap(dataset *school.DatasetResult) *MapView {
	nameField := displayNameField(dataset)

	markers := make([]Marker, 0, len(dataset.Rows))
	for _, row := range dataset.Rows {
		lat, lng, ok := school.Coordinates(row)
		if !ok {
			continue
		}
		markers = append(markers, Marker{
			Name:      school.Text(row, nameField),
			Latitude:  lat,
			Longitude: lng,
		})
	}
	if len(markers) == 0 {
		return nil
	}
	return &MapView{Markers: markers}
}

// fallbackSummary is used when the synthesizer produced nothing usable. It
// names the top rows with the first numeric metric, straight from the data.
func fallbackSummary(dataset *school.DatasetResult) string {
	nameField := displayNameField(dataset)
	metrics := chartableMetrics(dataset, nameField)

	const naming = 3
	names := make([]string, 0, naming)
	for _, row := range dataset.Rows {
		name := school.Text(row, nameField)
		if name == "" {
			continue
		}
		if len(metrics) > 0 {
			if v, ok := school.Float(row, metrics[0]); ok {
				name = fmt.Sprintf("%s (%s %v)", name, metrics[0], v)
			}
		}
		names = append(names, name)
		if len(names) == naming {
			break
		}
	}

	if len(names) == 0 {
		return fmt.Sprintf("Found %d matching records.", dataset.RowCount)
	}

	summary := fmt.Sprintf("Found %d matching records. Leading results: ", dataset.RowCount)
	for i, name := range names {
		if i > 0 {
			summary += "; "
		}
		summary += name
	}
	return summary + "."
}

func displayNameField(dataset *school.DatasetResult) string {
	for _, candidate := range []string{"school_name", "district_name", "county", "name"} {
		for _, f := range dataset.Fields {
			if f == candidate {
				return candidate
			}
		}
	}
	if len(dataset.Fields) > 0 {
		return dataset.Fields[0]
	}
	return ""
}

// chartableMetrics lists numeric fields in native order, excluding the label
// field and coordinate columns.
func chartableMetrics(dataset *school.DatasetResult, nameField string) []string {
	skip := map[string]bool{
		nameField: true, "latitude": true, "longitude": true,
		"leaid": true, "ncessch": true, "combokey": true,
	}

	metrics := make([]string, 0, len(dataset.Fields))
	for _, f := range dataset.Fields {
		if skip[f] {
			continue
		}
		for _, row := range dataset.Rows {
			if _, ok := school.Float(row, f); ok {
				metrics = append(metrics, f)
				break
			}
		}
	}
	return metrics
}
