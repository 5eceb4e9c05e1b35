// Package summary folds an estimated inventory into per-region totals.
package summary

import (
	"github.com/rshade/cloud-scanner-aws/internal/location"
	"github.com/rshade/cloud-scanner-aws/internal/model"
)

// ImpactsSummary aggregates the impacts of every assessed resource of one
// region. The instance counters cover every resource kind.
type ImpactsSummary struct {
	Region                       string  `json:"region"`
	Country                      string  `json:"country"`
	DurationOfUseHours           float64 `json:"duration_of_use_hours"`
	NumberOfInstancesTotal       uint32  `json:"number_of_instances_total"`
	NumberOfInstancesAssessed    uint32  `json:"number_of_instances_assessed"`
	NumberOfInstancesNotAssessed uint32  `json:"number_of_instances_not_assessed"`
	AdpManufactureKgsbeq         float64 `json:"adp_manufacture_kgsbeq"`
	AdpUseKgsbeq                 float64 `json:"adp_use_kgsbeq"`
	PeManufactureMegajoules      float64 `json:"pe_manufacture_megajoules"`
	PeUseMegajoules              float64 `json:"pe_use_megajoules"`
	GwpManufactureKgco2eq        float64 `json:"gwp_manufacture_kgco2eq"`
	GwpUseKgco2eq                float64 `json:"gwp_use_kgco2eq"`
}

// Summarize computes the summary of est for region. Sums run over assessed
// resources in input order.
func Summarize(est model.EstimatedInventory, region string, useDurationHours float64) ImpactsSummary {
	s := ImpactsSummary{
		Region:                 region,
		Country:                string(location.ForMetrics(region).IsoCountry),
		DurationOfUseHours:     useDurationHours,
		NumberOfInstancesTotal: uint32(len(est.Resources)),
	}
	for _, resource := range est.Resources {
		if !resource.IsAssessed() {
			continue
		}
		s.NumberOfInstancesAssessed++
		impacts := resource.Impacts
		s.AdpManufactureKgsbeq += impacts.AdpManufactureKgsbeq
		s.AdpUseKgsbeq += impacts.AdpUseKgsbeq
		s.PeManufactureMegajoules += impacts.PeManufactureMegajoules
		s.PeUseMegajoules += impacts.PeUseMegajoules
		s.GwpManufactureKgco2eq += impacts.GwpManufactureKgco2eq
		s.GwpUseKgco2eq += impacts.GwpUseKgco2eq
	}
	s.NumberOfInstancesNotAssessed = s.NumberOfInstancesTotal - s.NumberOfInstancesAssessed
	return s
}
