// Package model defines the provider-neutral records produced by the
// inventory and consumed by the impact provider, the summary and the exporters.
//
// Every value is immutable once produced. Code that needs to hand a resource to
// another goroutine passes a Clone.
package model

import (
	"github.com/rshade/cloud-scanner-aws/internal/apperrors"
	"github.com/rshade/cloud-scanner-aws/internal/location"
)

// CloudProvider identifies the vendor a resource was inventoried from.
type CloudProvider string

// ProviderAWS is the only supported vendor.
const ProviderAWS CloudProvider = "AWS"

// InstanceState is the simplified lifecycle state of a compute instance.
type InstanceState string

const (
	// InstanceRunning covers every vendor state except stopped and terminated.
	InstanceRunning InstanceState = "Running"

	// InstanceStopped covers stopped and terminated instances.
	InstanceStopped InstanceState = "Stopped"
)

// InstanceStateFromVendor maps a vendor state name to an InstanceState.
// Only "stopped" and "terminated" map to InstanceStopped; pending, stopping,
// shutting-down and any unknown value count as running.
func InstanceStateFromVendor(name string) InstanceState {
	switch name {
	case "stopped", "terminated":
		return InstanceStopped
	default:
		return InstanceRunning
	}
}

// InstanceUsage is the observed usage of a compute instance.
type InstanceUsage struct {
	// AverageCPULoad is the average CPU utilization in percent (0 to 100).
	// It is 0 when utilization could not be read.
	AverageCPULoad float64 `json:"average_cpu_load"`

	// UsageDurationSeconds is the observation window the load was averaged over.
	UsageDurationSeconds uint64 `json:"usage_duration_seconds"`

	// State is the instance state at inventory time.
	State InstanceState `json:"state"`
}

// StorageUsage is the provisioned size of a block volume.
type StorageUsage struct {
	SizeGB               uint64 `json:"size_gb"`
	UsageDurationSeconds uint64 `json:"usage_duration_seconds"`
}

// StorageAttachment references the instance a volume is attached to.
type StorageAttachment struct {
	InstanceID string `json:"instance_id"`
}

// CloudResource is one inventoried resource.
type CloudResource struct {
	Provider CloudProvider
	ID       string
	Location location.UsageLocation
	Details  ResourceDetails
	Tags     []Tag
}

// Validate checks the invariants every resource entering the pipeline must
// satisfy: a non-empty id, a mapped region with its matching country, and
// details.
func (r CloudResource) Validate() error {
	if r.ID == "" {
		return apperrors.New(apperrors.KindValidation, "resource id is required")
	}
	if _, err := location.New(r.Location.Region); err != nil {
		return err
	}
	if !r.Location.IsWellFormed() {
		return apperrors.Newf(apperrors.KindValidation,
			"resource %s: iso_country %q does not match region %q",
			r.ID, r.Location.IsoCountry, r.Location.Region)
	}
	if r.Details == nil {
		return apperrors.Newf(apperrors.KindValidation, "resource %s: details are required", r.ID)
	}
	return nil
}

// Clone returns a deep copy of r.
func (r CloudResource) Clone() CloudResource {
	clone := r
	if r.Details != nil {
		clone.Details = r.Details.clone()
	}
	if r.Tags != nil {
		clone.Tags = make([]Tag, len(r.Tags))
		for i, tag := range r.Tags {
			clone.Tags[i] = tag.clone()
		}
	}
	return clone
}

// ResourceImpacts holds the manufacture and use phase figures of one resource
// across the three indicators.
type ResourceImpacts struct {
	AdpManufactureKgsbeq    float64 `json:"adp_manufacture_kgsbeq"`
	AdpUseKgsbeq            float64 `json:"adp_use_kgsbeq"`
	PeManufactureMegajoules float64 `json:"pe_manufacture_megajoules"`
	PeUseMegajoules         float64 `json:"pe_use_megajoules"`
	GwpManufactureKgco2eq   float64 `json:"gwp_manufacture_kgco2eq"`
	GwpUseKgco2eq           float64 `json:"gwp_use_kgco2eq"`
}

// EstimatedResource pairs a resource with its impacts. Impacts is nil when
// the impact service returned no usable data for the resource.
type EstimatedResource struct {
	Resource             CloudResource    `json:"resource"`
	Impacts              *ResourceImpacts `json:"impacts"`
	ImpactsDurationHours float64          `json:"impacts_duration_hours"`
}

// IsAssessed reports whether impacts are available.
func (e EstimatedResource) IsAssessed() bool {
	return e.Impacts != nil
}
