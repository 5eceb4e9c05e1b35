// Package location maps AWS regions to the country where their datacenters
// operate. The country drives the electricity mix used by the impact service
// and labels every exported metric.
package location

import (
	"sort"

	"github.com/rshade/cloud-scanner-aws/internal/apperrors"
)

// CountryCode is a 3-letter ISO 3166-1 alpha-3 country code.
type CountryCode string

// UnknownCountry is returned for regions without a known country.
const UnknownCountry CountryCode = "UNKNOWN"

// RegionCountries maps AWS region codes to the hosting country.
//
// Only regions for which the impact service carries an electricity mix are
// listed. Regions outside this table are rejected by New.
var RegionCountries = map[string]CountryCode{
	"eu-central-1": "DEU", // Frankfurt
	"eu-north-1":   "SWE", // Stockholm
	"eu-south-1":   "ITA", // Milan
	"eu-west-1":    "IRL", // Ireland
	"eu-west-2":    "GBR", // London
	"eu-west-3":    "FRA", // Paris
	"us-east-1":    "USA", // N. Virginia
	"us-east-2":    "USA", // Ohio
	"us-west-1":    "USA", // N. California
	"us-west-2":    "USA", // Oregon
}

// RegionToCountry returns the country hosting the given AWS region, or
// UnknownCountry if the region is not listed in RegionCountries.
func RegionToCountry(region string) CountryCode {
	if country, ok := RegionCountries[region]; ok {
		return country
	}
	return UnknownCountry
}

// KnownRegions returns the mapped region codes in lexical order.
func KnownRegions() []string {
	regions := make([]string, 0, len(RegionCountries))
	for region := range RegionCountries {
		regions = append(regions, region)
	}
	sort.Strings(regions)
	return regions
}

// UsageLocation is where a resource is used: its region and the ISO country
// derived from it.
type UsageLocation struct {
	Region     string      `json:"region"`
	IsoCountry CountryCode `json:"iso_country"`
}

// New builds a UsageLocation for region. It fails with an UnknownRegion error
// when the region has no country mapping.
func New(region string) (UsageLocation, error) {
	country := RegionToCountry(region)
	if country == UnknownCountry {
		return UsageLocation{}, apperrors.Newf(apperrors.KindUnknownRegion, "unknown region %q", region)
	}
	return UsageLocation{Region: region, IsoCountry: country}, nil
}

// ForMetrics builds a UsageLocation for labelling metrics. Unlike New it never
// fails: unmapped regions keep their literal name with country UNKNOWN.
func ForMetrics(region string) UsageLocation {
	return UsageLocation{Region: region, IsoCountry: RegionToCountry(region)}
}

// IsWellFormed reports whether the location's country matches its region.
func (l UsageLocation) IsWellFormed() bool {
	return l.Region != "" && l.IsoCountry != UnknownCountry && RegionToCountry(l.Region) == l.IsoCountry
}
