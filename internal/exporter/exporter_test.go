package exporter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/cloud-scanner-aws/internal/location"
	"github.com/rshade/cloud-scanner-aws/internal/model"
	"github.com/rshade/cloud-scanner-aws/internal/summary"
)

func twoInstanceSummary() summary.ImpactsSummary {
	return summary.ImpactsSummary{
		Region:                       "eu-west-3",
		Country:                      "FRA",
		DurationOfUseHours:           1,
		NumberOfInstancesTotal:       2,
		NumberOfInstancesAssessed:    2,
		NumberOfInstancesNotAssessed: 0,
		AdpManufactureKgsbeq:         0.0166,
		AdpUseKgsbeq:                 1.8e-9,
		PeManufactureMegajoules:      2200,
		PeUseMegajoules:              0.4,
		GwpManufactureKgco2eq:        166,
		GwpUseKgco2eq:                0.004,
	}
}

func TestWriteMetrics(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMetrics(&buf, twoInstanceSummary()))
	out := buf.String()

	assert.True(t, strings.HasSuffix(out, "# EOF\n"), "output must end with # EOF:\n%s", out)
	assert.Equal(t, 9, strings.Count(out, "# HELP "))
	assert.Equal(t, 9, strings.Count(out, "# TYPE "))
	assert.Equal(t, 9, strings.Count(out, `{awsregion="eu-west-3",country="FRA"} `))

	var names []string
	for _, line := range strings.Split(out, "\n") {
		if name, ok := strings.CutPrefix(line, "# TYPE "); ok {
			fields := strings.Fields(name)
			require.Len(t, fields, 2)
			assert.Equal(t, "gauge", fields[1])
			names = append(names, fields[0])
		}
	}
	assert.Equal(t, []string{
		"boavizta_number_of_instances_total",
		"boavizta_number_of_instances_assessed",
		"boavizta_duration_of_use_hours",
		"boavizta_pe_manufacture_megajoules",
		"boavizta_pe_use_megajoules",
		"boavizta_adp_manufacture_kgsbeq",
		"boavizta_adp_use_kgsbeq",
		"boavizta_gwp_manufacture_kgco2eq",
		"boavizta_gwp_use_kgco2eq",
	}, names)

	assert.Contains(t, out, `boavizta_pe_manufacture_megajoules{awsregion="eu-west-3",country="FRA"} 2200`)
	assert.Contains(t, out, `boavizta_gwp_use_kgco2eq{awsregion="eu-west-3",country="FRA"} 0.004`)
}

func TestWriteMetrics_ContentTypePairing(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMetrics(&buf, twoInstanceSummary()))
	assert.Equal(t, "text/plain; version=0.0.4", MetricsContentType)
	assert.Contains(t, buf.String(), "} 2200.0\n")
	assert.True(t, strings.HasSuffix(buf.String(), "# EOF\n"))
}

func TestWriteMetrics_UnknownRegionLabels(t *testing.T) {
	s := summary.Summarize(model.EstimatedInventory{}, "ap-south-1", 1)

	var buf bytes.Buffer
	require.NoError(t, WriteMetrics(&buf, s))
	assert.Equal(t, 9, strings.Count(buf.String(), `{awsregion="ap-south-1",country="UNKNOWN"} `))
}

func TestWriteJSON(t *testing.T) {
	var compact bytes.Buffer
	require.NoError(t, WriteJSON(&compact, model.Inventory{}, false))
	assert.Equal(t, "{\"resources\":[],\"execution_statistics\":null}\n", compact.String())

	var pretty bytes.Buffer
	require.NoError(t, WriteJSON(&pretty, twoInstanceSummary(), true))
	assert.True(t, strings.HasPrefix(pretty.String(), "{\n  \"region\": \"eu-west-3\""))
	assert.JSONEq(t, compactJSON(t, twoInstanceSummary()), pretty.String())
}

func compactJSON(t *testing.T, v any) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, v, false))
	return buf.String()
}

func TestWriteSummaryTable(t *testing.T) {
	var buf bytes.Buffer
	WriteSummaryTable(&buf, twoInstanceSummary())
	out := buf.String()

	assert.Contains(t, out, "eu-west-3 (FRA)")
	assert.Contains(t, out, "Instances assessed")
	assert.Contains(t, out, "2200")
	assert.Contains(t, out, "0.004")
}

func TestWriteEstimatedTable(t *testing.T) {
	loc := location.UsageLocation{Region: "eu-west-3", IsoCountry: "FRA"}
	est := model.EstimatedInventory{Resources: []model.EstimatedResource{
		{
			Resource: model.CloudResource{ID: "i-1", Location: loc, Details: model.InstanceDetails{InstanceType: "m6g.xlarge"}},
			Impacts:  &model.ResourceImpacts{PeManufactureMegajoules: 1100, GwpUseKgco2eq: 0.002},
		},
		{
			Resource: model.CloudResource{ID: "vol-1", Location: loc, Details: model.BlockStorageDetails{StorageType: "gp3"}},
		},
	}}

	var buf bytes.Buffer
	WriteEstimatedTable(&buf, est)
	out := buf.String()

	assert.Contains(t, out, "i-1")
	assert.Contains(t, out, "m6g.xlarge")
	assert.Contains(t, out, "vol-1")
	assert.Contains(t, out, "gp3")
	assert.Contains(t, out, "1100")
	assert.Contains(t, strings.ToUpper(out), "2 RESOURCES, 1 ASSESSED")
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "2200", formatFloat(2200))
	assert.Equal(t, "0.004", formatFloat(0.004))
	assert.Equal(t, "1.8e-09", formatFloat(1.8e-9))
}
