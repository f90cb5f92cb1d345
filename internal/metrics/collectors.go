package metrics

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"edinsights/pkg/logger"
)

// WarehouseCollector exposes row counts from the education data warehouse so
// dashboards can spot a stale or partially loaded dataset.
type WarehouseCollector struct {
	log       *logger.Logger
	warehouse *sqlx.DB

	schoolsTotal   *prometheus.Desc
	districtsTotal *prometheus.Desc
	countiesTotal  *prometheus.Desc
	gradRecords    *prometheus.Desc
}

// NewWarehouseCollector creates a collector backed by the warehouse.
func NewWarehouseCollector(log *logger.Logger, warehouse *sqlx.DB) *WarehouseCollector {
	return &WarehouseCollector{
		log:       log,
		warehouse: warehouse,

		schoolsTotal: prometheus.NewDesc(
			"edinsights_warehouse_schools_total",
			"Schools in the directory table",
			nil, nil,
		),
		districtsTotal: prometheus.NewDesc(
			"edinsights_warehouse_districts_total",
			"Districts with finance records",
			nil, nil,
		),
		countiesTotal: prometheus.NewDesc(
			"edinsights_warehouse_counties_total",
			"Distinct counties in the directory table",
			nil, nil,
		),
		gradRecords: prometheus.NewDesc(
			"edinsights_warehouse_graduation_records_total",
			"Rows in the graduation rates table",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *WarehouseCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.schoolsTotal
	ch <- c.districtsTotal
	ch <- c.countiesTotal
	ch <- c.gradRecords
}

// Collect implements prometheus.Collector
func (c *WarehouseCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.collectCount(ctx, ch, c.schoolsTotal, "SELECT COUNT(*) FROM ccd_directory")
	c.collectCount(ctx, ch, c.districtsTotal, "SELECT COUNT(DISTINCT leaid) FROM district_finance")
	c.collectCount(ctx, ch, c.countiesTotal, "SELECT COUNT(DISTINCT county) FROM ccd_directory")
	c.collectCount(ctx, ch, c.gradRecords, "SELECT COUNT(*) FROM graduation_rates")
}

func (c *WarehouseCollector) collectCount(ctx context.Context, ch chan<- prometheus.Metric, desc *prometheus.Desc, query string) {
	var count int
	if err := c.warehouse.GetContext(ctx, &count, query); err != nil {
		c.log.Warnf("Failed to collect warehouse metric %s: %v", desc.String(), err)
		return
	}

	ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(count))
}

// RegisterWarehouseCollector registers the collector with the default
// registry.
func RegisterWarehouseCollector(collector *WarehouseCollector) {
	prometheus.MustRegister(collector)
}
