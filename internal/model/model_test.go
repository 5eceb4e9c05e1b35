package model

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rshade/cloud-scanner-aws/internal/apperrors"
	"github.com/rshade/cloud-scanner-aws/internal/location"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInstance(id string, tags ...Tag) CloudResource {
	return CloudResource{
		Provider: ProviderAWS,
		ID:       id,
		Location: location.UsageLocation{Region: "eu-west-3", IsoCountry: "FRA"},
		Details: InstanceDetails{
			InstanceType: "m6g.xlarge",
			Usage: &InstanceUsage{
				AverageCPULoad:       100,
				UsageDurationSeconds: 600,
				State:                InstanceRunning,
			},
		},
		Tags: tags,
	}
}

func testVolume(id string) CloudResource {
	return CloudResource{
		Provider: ProviderAWS,
		ID:       id,
		Location: location.UsageLocation{Region: "eu-west-3", IsoCountry: "FRA"},
		Details: BlockStorageDetails{
			StorageType:       "gp3",
			Usage:             &StorageUsage{SizeGB: 50, UsageDurationSeconds: 600},
			AttachedInstances: []StorageAttachment{{InstanceID: "i-1"}},
		},
	}
}

func TestInstanceStateFromVendor(t *testing.T) {
	tests := map[string]InstanceState{
		"running":       InstanceRunning,
		"pending":       InstanceRunning,
		"stopping":      InstanceRunning,
		"shutting-down": InstanceRunning,
		"":              InstanceRunning,
		"stopped":       InstanceStopped,
		"terminated":    InstanceStopped,
	}
	for vendor, want := range tests {
		assert.Equal(t, want, InstanceStateFromVendor(vendor), "vendor state %q", vendor)
	}
}

func TestCloudResource_MarshalJSON_FieldOrder(t *testing.T) {
	data, err := json.Marshal(testInstance("i-1", NewTag("Name", "boatest")))
	require.NoError(t, err)

	want := `{"provider":"AWS","id":"i-1",` +
		`"location":{"region":"eu-west-3","iso_country":"FRA"},` +
		`"details":{"Instance":{"instance_type":"m6g.xlarge",` +
		`"usage":{"average_cpu_load":100,"usage_duration_seconds":600,"state":"Running"}}},` +
		`"tags":[{"key":"Name","value":"boatest"}]}`
	assert.Equal(t, want, string(data))
}

func TestCloudResource_JSONRoundTrip(t *testing.T) {
	original := Inventory{
		Resources: []CloudResource{
			testInstance("i-1", NewTag("Name", "boatest"), Tag{Key: "empty"}),
			testVolume("vol-1"),
			testInstance("i-2"),
		},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"BlockStorage":{"storage_type":"gp3"`)
	assert.Contains(t, string(data), `{"key":"empty","value":null}`)
	assert.Contains(t, string(data), `"execution_statistics":null`)

	var decoded Inventory
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Resources, 3)
	assert.Equal(t, original.Resources, decoded.Resources)
	assert.Nil(t, decoded.Resources[2].Tags)
}

func TestCloudResource_UnmarshalJSON_RejectsAmbiguousDetails(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "both variants",
			body: `{"id":"x","details":{"Instance":{"instance_type":"a"},"BlockStorage":{"storage_type":"b"}}}`,
		},
		{
			name: "no variant",
			body: `{"id":"x","details":{}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r CloudResource
			assert.Error(t, json.Unmarshal([]byte(tt.body), &r))
		})
	}
}

func TestInventory_EmptyEncodesArray(t *testing.T) {
	data, err := json.Marshal(Inventory{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"resources":[],"execution_statistics":null}`, string(data))

	data, err = json.Marshal(EstimatedInventory{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"resources":[],"execution_statistics":null}`, string(data))
}

func TestEstimatedResource_NullImpacts(t *testing.T) {
	data, err := json.Marshal(EstimatedResource{Resource: testVolume("vol-1"), ImpactsDurationHours: 1})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"impacts":null`)
	assert.Contains(t, string(data), `"impacts_duration_hours":1`)
}

func TestCloudResource_Clone(t *testing.T) {
	original := testInstance("i-1", NewTag("Name", "boatest"))
	clone := original.Clone()
	require.Equal(t, original, clone)

	*clone.Tags[0].Value = "changed"
	clone.Details.(InstanceDetails).Usage.AverageCPULoad = 1

	assert.Equal(t, "boatest", *original.Tags[0].Value)
	assert.Equal(t, 100.0, original.Details.(InstanceDetails).Usage.AverageCPULoad)

	volume := testVolume("vol-1")
	volumeClone := volume.Clone()
	volumeClone.Details.(BlockStorageDetails).AttachedInstances[0].InstanceID = "i-2"
	assert.Equal(t, "i-1", volume.Details.(BlockStorageDetails).AttachedInstances[0].InstanceID)
}

func TestCloudResource_Validate(t *testing.T) {
	valid := testInstance("i-1")
	require.NoError(t, valid.Validate())

	missingID := testInstance("")
	assert.True(t, apperrors.IsKind(missingID.Validate(), apperrors.KindValidation))

	unknownRegion := testInstance("i-2")
	unknownRegion.Location = location.UsageLocation{Region: "ap-south-1", IsoCountry: "IND"}
	assert.True(t, apperrors.IsKind(unknownRegion.Validate(), apperrors.KindUnknownRegion))

	mismatch := testInstance("i-3")
	mismatch.Location.IsoCountry = "DEU"
	assert.True(t, apperrors.IsKind(mismatch.Validate(), apperrors.KindValidation))

	noDetails := testInstance("i-4")
	noDetails.Details = nil
	assert.True(t, apperrors.IsKind(noDetails.Validate(), apperrors.KindValidation))
}

func TestParseTagFilters(t *testing.T) {
	filters, err := ParseTagFilters([]string{"Name=boatest", "env=", "expr=a=b"})
	require.NoError(t, err)
	assert.Equal(t, []TagFilter{
		{Key: "Name", Value: "boatest"},
		{Key: "env", Value: ""},
		{Key: "expr", Value: "a=b"},
	}, filters)
	assert.Equal(t, "Name=boatest", filters[0].String())

	for _, bad := range []string{"novalue", "=value", ""} {
		_, err := ParseTagFilters([]string{bad})
		assert.True(t, apperrors.IsKind(err, apperrors.KindValidation), "entry %q", bad)
	}

	empty, err := ParseTagFilters(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

// TestMatchesTagFilters covers the AND semantics with literal equality on
// both key and value.
func TestMatchesTagFilters(t *testing.T) {
	tags := []Tag{NewTag("Name", "boatest"), NewTag("env", "prod"), {Key: "flag"}}

	tests := []struct {
		name    string
		filters []TagFilter
		want    bool
	}{
		{"empty filter", nil, true},
		{"single match", []TagFilter{{"Name", "boatest"}}, true},
		{"all match", []TagFilter{{"Name", "boatest"}, {"env", "prod"}}, true},
		{"one missing", []TagFilter{{"Name", "boatest"}, {"team", "x"}}, false},
		{"value differs", []TagFilter{{"Name", "BoaTest"}}, false},
		{"key case differs", []TagFilter{{"name", "boatest"}}, false},
		{"tag without value", []TagFilter{{"flag", ""}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesTagFilters(tags, tt.filters))
		})
	}
}

func TestDuration_JSON(t *testing.T) {
	stats := ExecutionStatistics{
		InventoryDuration: Duration(1500 * time.Millisecond),
		ImpactDuration:    Duration(2 * time.Second),
		TotalDuration:     Duration(3600 * time.Millisecond),
	}
	data, err := json.Marshal(stats)
	require.NoError(t, err)
	assert.Equal(t, `{"inventory_duration":"1.5s","impact_duration":"2s","total_duration":"3.6s"}`, string(data))

	var decoded ExecutionStatistics
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, stats, decoded)

	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`1000`), &d))
	assert.Equal(t, time.Microsecond, d.Std())
	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`true`), &d))
}
