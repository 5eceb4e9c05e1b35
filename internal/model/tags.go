package model

import (
	"strings"

	"github.com/rshade/cloud-scanner-aws/internal/apperrors"
)

// Tag is a key with an optional value attached to a resource.
type Tag struct {
	Key   string  `json:"key"`
	Value *string `json:"value"`
}

// NewTag returns a tag with a value.
func NewTag(key, value string) Tag {
	return Tag{Key: key, Value: &value}
}

func (t Tag) clone() Tag {
	if t.Value != nil {
		value := *t.Value
		t.Value = &value
	}
	return t
}

// TagFilter is a parsed "key=value" filter entry.
type TagFilter struct {
	Key   string
	Value string
}

// String returns the "key=value" form of the filter.
func (f TagFilter) String() string {
	return f.Key + "=" + f.Value
}

// ParseTagFilters parses "key=value" entries. The entry is split on the first
// '='; the value may be empty, the key may not. A nil or empty input yields no
// filters, which matches every resource.
func ParseTagFilters(entries []string) ([]TagFilter, error) {
	filters := make([]TagFilter, 0, len(entries))
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			return nil, apperrors.Newf(apperrors.KindValidation, "invalid tag filter %q: expected key=value", entry)
		}
		filters = append(filters, TagFilter{Key: key, Value: value})
	}
	return filters, nil
}

// MatchesTagFilters reports whether tags satisfy every filter: for each entry
// there must be a tag with exactly that key and a value equal to the entry's
// value. Tags without a value never match.
func MatchesTagFilters(tags []Tag, filters []TagFilter) bool {
	for _, filter := range filters {
		if !hasTag(tags, filter) {
			return false
		}
	}
	return true
}

func hasTag(tags []Tag, filter TagFilter) bool {
	for _, tag := range tags {
		if tag.Key == filter.Key && tag.Value != nil && *tag.Value == filter.Value {
			return true
		}
	}
	return false
}
