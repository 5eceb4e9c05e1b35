// Package impact enriches inventoried resources with their environmental
// impacts (abiotic depletion, global warming, primary energy) for a given
// duration of use.
package impact

import (
	"context"
	"math"

	"github.com/rshade/cloud-scanner-aws/internal/apperrors"
	"github.com/rshade/cloud-scanner-aws/internal/model"
)

// ImpactProvider computes impacts for a batch of resources.
type ImpactProvider interface {
	// GetImpacts returns one EstimatedResource per input resource, in input
	// order. A resource whose impacts cannot be obtained is returned with nil
	// Impacts; only an invalid duration or cancellation fails the batch.
	GetImpacts(ctx context.Context, resources []model.CloudResource, useDurationHours float64, verbose bool) ([]model.EstimatedResource, error)
}

// ValidateDuration rejects negative and non-finite durations of use.
func ValidateDuration(hours float64) error {
	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours < 0 {
		return apperrors.Newf(apperrors.KindInvalidDuration,
			"use_duration_hours must be a finite non-negative number, got %v", hours)
	}
	return nil
}

// Workload returns the integer CPU workload percentage sent to the impact
// service: the rounded average load of an instance clamped to [0, 100], and 0
// for volumes or instances without usage.
func Workload(details model.ResourceDetails) int {
	instance, ok := details.(model.InstanceDetails)
	if !ok || instance.Usage == nil {
		return 0
	}
	return int(math.Round(Clamp(instance.Usage.AverageCPULoad, 0, 100)))
}

// Clamp restricts a value to the range [lo, hi]. NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
