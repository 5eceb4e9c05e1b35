package exporter

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/rshade/cloud-scanner-aws/internal/summary"
)

// MetricsContentType is the Content-Type served with WriteMetrics output.
// The body is OpenMetrics text (float samples, trailing # EOF) but scrapers
// of this endpoint expect the classic text/plain 0.0.4 header, so the two do
// not match on purpose. Keep them as they are.
const MetricsContentType = "text/plain; version=0.0.4"

const metricPrefix = "boavizta_"

var metricLabels = []string{"awsregion", "country"}

// summaryGauge binds a gauge name to the summary field it exposes.
type summaryGauge struct {
	name  string
	help  string
	value func(summary.ImpactsSummary) float64
}

// summaryGauges lists the exported gauges in registration order, which is
// also the output order.
var summaryGauges = []summaryGauge{
	{
		name:  "number_of_instances_total",
		help:  "Number of instances detected during the inventory",
		value: func(s summary.ImpactsSummary) float64 { return float64(s.NumberOfInstancesTotal) },
	},
	{
		name:  "number_of_instances_assessed",
		help:  "Number of instances that were considered in the measure",
		value: func(s summary.ImpactsSummary) float64 { return float64(s.NumberOfInstancesAssessed) },
	},
	{
		name:  "duration_of_use_hours",
		help:  "Number of hours of use for which impacts are calculated",
		value: func(s summary.ImpactsSummary) float64 { return s.DurationOfUseHours },
	},
	{
		name:  "pe_manufacture_megajoules",
		help:  "Energy consumed for manufacture",
		value: func(s summary.ImpactsSummary) float64 { return s.PeManufactureMegajoules },
	},
	{
		name:  "pe_use_megajoules",
		help:  "Energy consumed during use",
		value: func(s summary.ImpactsSummary) float64 { return s.PeUseMegajoules },
	},
	{
		name:  "adp_manufacture_kgsbeq",
		help:  "Abiotic resources depletion potential of manufacture",
		value: func(s summary.ImpactsSummary) float64 { return s.AdpManufactureKgsbeq },
	},
	{
		name:  "adp_use_kgsbeq",
		help:  "Abiotic resources depletion potential of use",
		value: func(s summary.ImpactsSummary) float64 { return s.AdpUseKgsbeq },
	},
	{
		name:  "gwp_manufacture_kgco2eq",
		help:  "Global Warming Potential of manufacture",
		value: func(s summary.ImpactsSummary) float64 { return s.GwpManufactureKgco2eq },
	},
	{
		name:  "gwp_use_kgco2eq",
		help:  "Global Warming Potential of use",
		value: func(s summary.ImpactsSummary) float64 { return s.GwpUseKgco2eq },
	},
}

// WriteMetrics writes the summary as OpenMetrics text: one labelled gauge per
// summary figure, in a fixed order, terminated by "# EOF".
func WriteMetrics(w io.Writer, s summary.ImpactsSummary) error {
	registry := prometheus.NewRegistry()
	order := make([]string, 0, len(summaryGauges))

	for _, g := range summaryGauges {
		vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: metricPrefix + g.name,
			Help: g.help,
		}, metricLabels)
		if err := registry.Register(vec); err != nil {
			return fmt.Errorf("registering %s: %w", g.name, err)
		}
		vec.WithLabelValues(s.Region, s.Country).Set(g.value(s))
		order = append(order, metricPrefix+g.name)
	}

	families, err := registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeOpenMetrics))
	for _, name := range order {
		mf, ok := byName[name]
		if !ok {
			continue
		}
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encoding %s: %w", name, err)
		}
	}
	if closer, ok := enc.(expfmt.Closer); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("closing metrics encoder: %w", err)
		}
	}
	return nil
}
