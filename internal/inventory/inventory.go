// Package inventory lists the resources of a cloud account in one region and
// normalizes them into model.CloudResource values.
package inventory

import (
	"context"
	"strings"

	"github.com/rshade/cloud-scanner-aws/internal/location"
	"github.com/rshade/cloud-scanner-aws/internal/model"
)

// Inventoriable lists the resources of one region.
type Inventoriable interface {
	// ListResources returns every resource matching all "key=value" entries of
	// tagFilter. Block volumes are included only when includeBlockStorage is set.
	// A listing failure is fatal; missing usage data for a single resource is not.
	ListResources(ctx context.Context, tagFilter []string, includeBlockStorage bool) (model.Inventory, error)
}

// Factory builds an Inventoriable bound to a validated location.
type Factory func(ctx context.Context, loc location.UsageLocation) (Inventoriable, error)

const maxTagsToLog = 5

// sanitizeTagsForLogging returns at most maxTagsToLog tags as a map, skipping
// keys that look like they hold credentials.
func sanitizeTagsForLogging(tags []model.Tag) map[string]string {
	if len(tags) == 0 {
		return nil
	}
	capacity := len(tags)
	if capacity > maxTagsToLog {
		capacity = maxTagsToLog
	}
	sanitized := make(map[string]string, capacity)
	for _, tag := range tags {
		if len(sanitized) >= maxTagsToLog {
			break
		}
		kLower := strings.ToLower(tag.Key)
		if strings.Contains(kLower, "secret") ||
			strings.Contains(kLower, "password") ||
			strings.Contains(kLower, "token") {
			continue
		}
		value := ""
		if tag.Value != nil {
			value = *tag.Value
		}
		sanitized[tag.Key] = value
	}
	return sanitized
}
