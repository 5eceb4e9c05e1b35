package model

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Duration is a time.Duration encoded as a Go duration string ("1.5s").
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalJSON encodes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(time.Duration(value))
	default:
		return fmt.Errorf("invalid duration %s", string(data))
	}
	return nil
}

// ExecutionStatistics records wall-clock time spent in each pipeline phase.
type ExecutionStatistics struct {
	InventoryDuration Duration `json:"inventory_duration"`
	ImpactDuration    Duration `json:"impact_duration"`
	TotalDuration     Duration `json:"total_duration"`
}

// Inventory is the set of resources observed in one region.
type Inventory struct {
	Resources           []CloudResource      `json:"resources"`
	ExecutionStatistics *ExecutionStatistics `json:"execution_statistics"`
}

// MarshalJSON encodes a nil resource list as an empty array.
func (i Inventory) MarshalJSON() ([]byte, error) {
	type plain Inventory
	if i.Resources == nil {
		i.Resources = []CloudResource{}
	}
	return json.Marshal(plain(i))
}

// EstimatedInventory is an inventory whose resources carry impacts.
type EstimatedInventory struct {
	Resources           []EstimatedResource  `json:"resources"`
	ExecutionStatistics *ExecutionStatistics `json:"execution_statistics"`
}

// MarshalJSON encodes a nil resource list as an empty array.
func (e EstimatedInventory) MarshalJSON() ([]byte, error) {
	type plain EstimatedInventory
	if e.Resources == nil {
		e.Resources = []EstimatedResource{}
	}
	return json.Marshal(plain(e))
}
