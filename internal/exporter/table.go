package exporter

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/rshade/cloud-scanner-aws/internal/model"
	"github.com/rshade/cloud-scanner-aws/internal/summary"
)

// WriteSummaryTable renders s as a two-column table.
func WriteSummaryTable(w io.Writer, s summary.ImpactsSummary) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle("Impacts summary")
	tw.AppendHeader(table.Row{"Indicator", "Value"})
	tw.SetStyle(table.StyleRounded)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})

	tw.AppendRows([]table.Row{
		{"Region", fmt.Sprintf("%s (%s)", s.Region, s.Country)},
		{"Duration of use (h)", formatFloat(s.DurationOfUseHours)},
	})
	tw.AppendSeparator()
	tw.AppendRows([]table.Row{
		{"Instances total", s.NumberOfInstancesTotal},
		{"Instances assessed", s.NumberOfInstancesAssessed},
		{"Instances not assessed", s.NumberOfInstancesNotAssessed},
	})
	tw.AppendSeparator()
	tw.AppendRows([]table.Row{
		{"ADP manufacture (kgSbeq)", formatFloat(s.AdpManufactureKgsbeq)},
		{"ADP use (kgSbeq)", formatFloat(s.AdpUseKgsbeq)},
		{"PE manufacture (MJ)", formatFloat(s.PeManufactureMegajoules)},
		{"PE use (MJ)", formatFloat(s.PeUseMegajoules)},
		{"GWP manufacture (kgCO2eq)", formatFloat(s.GwpManufactureKgco2eq)},
		{"GWP use (kgCO2eq)", formatFloat(s.GwpUseKgco2eq)},
	})
	tw.Render()
}

// WriteEstimatedTable renders one row per resource. Unassessed resources show
// "-" in every impact column.
func WriteEstimatedTable(w io.Writer, est model.EstimatedInventory) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle("Estimated resources")
	tw.AppendHeader(table.Row{
		"ID", "Kind", "Type", "Region",
		"ADP mfg", "ADP use", "PE mfg (MJ)", "PE use (MJ)", "GWP mfg (kgCO2eq)", "GWP use (kgCO2eq)",
	})
	tw.SetStyle(table.StyleRounded)
	configs := make([]table.ColumnConfig, 0, 6)
	for col := 5; col <= 10; col++ {
		configs = append(configs, table.ColumnConfig{Number: col, Align: text.AlignRight})
	}
	tw.SetColumnConfigs(configs)

	assessed := 0
	for _, e := range est.Resources {
		row := table.Row{e.Resource.ID, resourceKind(e.Resource.Details), resourceType(e.Resource.Details), e.Resource.Location.Region}
		if e.Impacts == nil {
			row = append(row, "-", "-", "-", "-", "-", "-")
		} else {
			assessed++
			row = append(row,
				formatFloat(e.Impacts.AdpManufactureKgsbeq),
				formatFloat(e.Impacts.AdpUseKgsbeq),
				formatFloat(e.Impacts.PeManufactureMegajoules),
				formatFloat(e.Impacts.PeUseMegajoules),
				formatFloat(e.Impacts.GwpManufactureKgco2eq),
				formatFloat(e.Impacts.GwpUseKgco2eq),
			)
		}
		tw.AppendRow(row)
	}
	tw.AppendFooter(table.Row{fmt.Sprintf("%d resources, %d assessed", len(est.Resources), assessed)})
	tw.Render()
}

func resourceKind(details model.ResourceDetails) string {
	switch details.(type) {
	case model.InstanceDetails:
		return "Instance"
	case model.BlockStorageDetails:
		return "BlockStorage"
	default:
		return "-"
	}
}

func resourceType(details model.ResourceDetails) string {
	if details == nil {
		return "-"
	}
	return details.ResourceType()
}

// formatFloat prints integers without decimals and keeps small figures
// readable.
func formatFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%.4g", f)
}
