// Package scanner runs the estimation pipeline: inventory a region, fan the
// resources out to the impact provider and assemble the result.
//
// Each resource moves through Inventoried, then UsageAttached or
// UsageUnavailable, then Assessed or Unassessed. Only region validation,
// duration validation, listing failures and cancellation abort a run.
package scanner

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/rshade/cloud-scanner-aws/internal/apperrors"
	"github.com/rshade/cloud-scanner-aws/internal/impact"
	"github.com/rshade/cloud-scanner-aws/internal/inventory"
	"github.com/rshade/cloud-scanner-aws/internal/location"
	"github.com/rshade/cloud-scanner-aws/internal/model"
	"github.com/rshade/cloud-scanner-aws/internal/summary"
)

// EstimateRequest describes one estimation run.
type EstimateRequest struct {
	Region              string
	TagFilter           []string
	IncludeBlockStorage bool
	UseDurationHours    float64
	Verbose             bool
}

// Scanner wires an inventory source to an impact provider.
type Scanner struct {
	inventories inventory.Factory
	impacts     impact.ImpactProvider
	logger      zerolog.Logger
}

// New creates a Scanner.
func New(inventories inventory.Factory, impacts impact.ImpactProvider, logger zerolog.Logger) *Scanner {
	return &Scanner{
		inventories: inventories,
		impacts:     impacts,
		logger:      logger.With().Str("component", "scanner").Logger(),
	}
}

// Inventory lists the resources of region. The region is validated before any
// vendor call.
func (s *Scanner) Inventory(ctx context.Context, region string, tagFilter []string, includeBlockStorage bool) (model.Inventory, error) {
	loc, err := location.New(region)
	if err != nil {
		return model.Inventory{}, err
	}
	if _, err := model.ParseTagFilters(tagFilter); err != nil {
		return model.Inventory{}, err
	}
	return s.listResources(ctx, loc, tagFilter, includeBlockStorage)
}

func (s *Scanner) listResources(ctx context.Context, loc location.UsageLocation, tagFilter []string, includeBlockStorage bool) (model.Inventory, error) {
	source, err := s.inventories(ctx, loc)
	if err != nil {
		return model.Inventory{}, err
	}
	inv, err := source.ListResources(ctx, tagFilter, includeBlockStorage)
	if err != nil {
		return model.Inventory{}, err
	}
	return inv, nil
}

// Estimate inventories req.Region and attaches impacts to every resource.
func (s *Scanner) Estimate(ctx context.Context, req EstimateRequest) (model.EstimatedInventory, error) {
	start := time.Now()

	if err := impact.ValidateDuration(req.UseDurationHours); err != nil {
		return model.EstimatedInventory{}, err
	}
	loc, err := location.New(req.Region)
	if err != nil {
		return model.EstimatedInventory{}, err
	}
	if _, err := model.ParseTagFilters(req.TagFilter); err != nil {
		return model.EstimatedInventory{}, err
	}

	inventoryStart := time.Now()
	inv, err := s.listResources(ctx, loc, req.TagFilter, req.IncludeBlockStorage)
	if err != nil {
		return model.EstimatedInventory{}, err
	}
	inventoryDuration := time.Since(inventoryStart)

	impactStart := time.Now()
	estimated, err := s.impacts.GetImpacts(ctx, inv.Resources, req.UseDurationHours, req.Verbose)
	if err != nil {
		return model.EstimatedInventory{}, err
	}
	impactDuration := time.Since(impactStart)

	result := model.EstimatedInventory{
		Resources: estimated,
		ExecutionStatistics: &model.ExecutionStatistics{
			InventoryDuration: model.Duration(inventoryDuration),
			ImpactDuration:    model.Duration(impactDuration),
			TotalDuration:     model.Duration(time.Since(start)),
		},
	}
	s.logResult(req.Region, result)
	return result, nil
}

// EstimateInventory attaches impacts to a caller supplied inventory. Every
// resource is validated first; the inventory duration of the input is kept.
func (s *Scanner) EstimateInventory(ctx context.Context, inv model.Inventory, useDurationHours float64, verbose bool) (model.EstimatedInventory, error) {
	start := time.Now()

	if err := impact.ValidateDuration(useDurationHours); err != nil {
		return model.EstimatedInventory{}, err
	}
	for _, resource := range inv.Resources {
		if err := resource.Validate(); err != nil {
			return model.EstimatedInventory{}, err
		}
	}
	if err := apperrors.FromContext(ctx); err != nil {
		return model.EstimatedInventory{}, err
	}

	estimated, err := s.impacts.GetImpacts(ctx, inv.Resources, useDurationHours, verbose)
	if err != nil {
		return model.EstimatedInventory{}, err
	}
	impactDuration := model.Duration(time.Since(start))

	stats := &model.ExecutionStatistics{ImpactDuration: impactDuration}
	if inv.ExecutionStatistics != nil {
		stats.InventoryDuration = inv.ExecutionStatistics.InventoryDuration
	}
	stats.TotalDuration = stats.InventoryDuration + impactDuration

	return model.EstimatedInventory{Resources: estimated, ExecutionStatistics: stats}, nil
}

// Summary runs Estimate and folds the result into an ImpactsSummary.
func (s *Scanner) Summary(ctx context.Context, req EstimateRequest) (summary.ImpactsSummary, error) {
	est, err := s.Estimate(ctx, req)
	if err != nil {
		return summary.ImpactsSummary{}, err
	}
	return summary.Summarize(est, req.Region, req.UseDurationHours), nil
}

func (s *Scanner) logResult(region string, est model.EstimatedInventory) {
	assessed := 0
	for _, r := range est.Resources {
		if r.IsAssessed() {
			assessed++
		}
	}
	s.logger.Info().
		Str("aws_region", region).
		Int("resources", len(est.Resources)).
		Int("assessed", assessed).
		Dur("inventory_duration", est.ExecutionStatistics.InventoryDuration.Std()).
		Dur("impact_duration", est.ExecutionStatistics.ImpactDuration.Std()).
		Dur("total_duration", est.ExecutionStatistics.TotalDuration.Std()).
		Msg("estimation completed")
}
