package model

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/rshade/cloud-scanner-aws/internal/location"
)

// ResourceDetails is the kind-specific part of a CloudResource. It is a closed
// set: InstanceDetails or BlockStorageDetails.
type ResourceDetails interface {
	// ResourceType is the vendor type string sent to the impact service
	// (instance type or volume type).
	ResourceType() string

	clone() ResourceDetails
}

// InstanceDetails describes a compute instance.
type InstanceDetails struct {
	InstanceType string         `json:"instance_type"`
	Usage        *InstanceUsage `json:"usage"`
}

// ResourceType returns the instance type.
func (d InstanceDetails) ResourceType() string { return d.InstanceType }

func (d InstanceDetails) clone() ResourceDetails {
	if d.Usage != nil {
		usage := *d.Usage
		d.Usage = &usage
	}
	return d
}

// BlockStorageDetails describes a block volume.
type BlockStorageDetails struct {
	StorageType       string              `json:"storage_type"`
	Usage             *StorageUsage       `json:"usage"`
	AttachedInstances []StorageAttachment `json:"attached_instances"`
}

// ResourceType returns the volume type.
func (d BlockStorageDetails) ResourceType() string { return d.StorageType }

func (d BlockStorageDetails) clone() ResourceDetails {
	if d.Usage != nil {
		usage := *d.Usage
		d.Usage = &usage
	}
	if d.AttachedInstances != nil {
		d.AttachedInstances = append([]StorageAttachment(nil), d.AttachedInstances...)
	}
	return d
}

// detailsEnvelope is the externally tagged JSON form of ResourceDetails:
// {"Instance": {...}} or {"BlockStorage": {...}}.
type detailsEnvelope struct {
	Instance     *InstanceDetails     `json:"Instance,omitempty"`
	BlockStorage *BlockStorageDetails `json:"BlockStorage,omitempty"`
}

func newDetailsEnvelope(details ResourceDetails) (*detailsEnvelope, error) {
	switch d := details.(type) {
	case nil:
		return nil, nil
	case InstanceDetails:
		return &detailsEnvelope{Instance: &d}, nil
	case *InstanceDetails:
		return &detailsEnvelope{Instance: d}, nil
	case BlockStorageDetails:
		return &detailsEnvelope{BlockStorage: &d}, nil
	case *BlockStorageDetails:
		return &detailsEnvelope{BlockStorage: d}, nil
	default:
		return nil, fmt.Errorf("unsupported resource details %T", details)
	}
}

func (e *detailsEnvelope) details() (ResourceDetails, error) {
	if e == nil {
		return nil, nil
	}
	switch {
	case e.Instance != nil && e.BlockStorage != nil:
		return nil, fmt.Errorf("resource details must hold exactly one of Instance or BlockStorage")
	case e.Instance != nil:
		return *e.Instance, nil
	case e.BlockStorage != nil:
		return *e.BlockStorage, nil
	default:
		return nil, fmt.Errorf("resource details must hold one of Instance or BlockStorage")
	}
}

// cloudResourceJSON fixes the field order of an encoded CloudResource.
type cloudResourceJSON struct {
	Provider CloudProvider          `json:"provider"`
	ID       string                 `json:"id"`
	Location location.UsageLocation `json:"location"`
	Details  *detailsEnvelope       `json:"details"`
	Tags     []Tag                  `json:"tags"`
}

// MarshalJSON encodes the resource with externally tagged details.
func (r CloudResource) MarshalJSON() ([]byte, error) {
	envelope, err := newDetailsEnvelope(r.Details)
	if err != nil {
		return nil, err
	}
	tags := r.Tags
	if tags == nil {
		tags = []Tag{}
	}
	return json.Marshal(cloudResourceJSON{
		Provider: r.Provider,
		ID:       r.ID,
		Location: r.Location,
		Details:  envelope,
		Tags:     tags,
	})
}

// UnmarshalJSON decodes a resource produced by MarshalJSON.
func (r *CloudResource) UnmarshalJSON(data []byte) error {
	var raw cloudResourceJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	details, err := raw.Details.details()
	if err != nil {
		return fmt.Errorf("resource %q: %w", raw.ID, err)
	}
	// An untagged resource encodes as [] and decodes back to nil.
	if len(raw.Tags) == 0 {
		raw.Tags = nil
	}
	*r = CloudResource{
		Provider: raw.Provider,
		ID:       raw.ID,
		Location: raw.Location,
		Details:  details,
		Tags:     raw.Tags,
	}
	return nil
}
