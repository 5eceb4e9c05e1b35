package location

import (
	"testing"

	"github.com/rshade/cloud-scanner-aws/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionToCountry(t *testing.T) {
	tests := []struct {
		region string
		want   CountryCode
	}{
		{"eu-central-1", "DEU"},
		{"eu-north-1", "SWE"},
		{"eu-south-1", "ITA"},
		{"eu-west-1", "IRL"},
		{"eu-west-2", "GBR"},
		{"eu-west-3", "FRA"},
		{"us-east-1", "USA"},
		{"us-east-2", "USA"},
		{"us-west-1", "USA"},
		{"us-west-2", "USA"},
		{"ap-south-1", UnknownCountry},
		{"", UnknownCountry},
		{"EU-WEST-3", UnknownCountry},
	}

	for _, tt := range tests {
		t.Run(tt.region, func(t *testing.T) {
			assert.Equal(t, tt.want, RegionToCountry(tt.region))
		})
	}
}

// TestRegionCountries_AllISO3 validates that every mapped country is a
// 3-letter upper-case code.
func TestRegionCountries_AllISO3(t *testing.T) {
	for region, country := range RegionCountries {
		t.Run(region, func(t *testing.T) {
			require.Len(t, string(country), 3)
			for _, r := range country {
				assert.True(t, r >= 'A' && r <= 'Z', "country %q for %s should be upper-case", country, region)
			}
		})
	}
}

func TestNew(t *testing.T) {
	loc, err := New("eu-west-3")
	require.NoError(t, err)
	assert.Equal(t, UsageLocation{Region: "eu-west-3", IsoCountry: "FRA"}, loc)
	assert.True(t, loc.IsWellFormed())

	_, err = New("ap-south-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnknownRegion))
	assert.Contains(t, err.Error(), "ap-south-1")
}

func TestForMetrics(t *testing.T) {
	assert.Equal(t, UsageLocation{Region: "eu-west-1", IsoCountry: "IRL"}, ForMetrics("eu-west-1"))

	fallback := ForMetrics("ap-south-1")
	assert.Equal(t, "ap-south-1", fallback.Region)
	assert.Equal(t, UnknownCountry, fallback.IsoCountry)
	assert.False(t, fallback.IsWellFormed())
}

func TestKnownRegions_SortedAndComplete(t *testing.T) {
	regions := KnownRegions()
	assert.Len(t, regions, len(RegionCountries))
	assert.IsIncreasing(t, regions)
	for _, region := range regions {
		loc, err := New(region)
		require.NoError(t, err)
		assert.True(t, loc.IsWellFormed())
	}
}
