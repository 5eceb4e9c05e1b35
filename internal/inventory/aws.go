package inventory

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rshade/cloud-scanner-aws/internal/apperrors"
	"github.com/rshade/cloud-scanner-aws/internal/impact"
	"github.com/rshade/cloud-scanner-aws/internal/location"
	"github.com/rshade/cloud-scanner-aws/internal/model"
)

const (
	// DefaultCallTimeout bounds each EC2 or CloudWatch call.
	DefaultCallTimeout = 10 * time.Second

	// DefaultUsageConcurrency bounds concurrent CloudWatch queries.
	DefaultUsageConcurrency = 8

	// cpuMetricWindow is how far back CPU utilization is averaged.
	cpuMetricWindow = 10 * time.Minute

	// cpuMetricPeriodSeconds is the CloudWatch sampling period.
	cpuMetricPeriodSeconds = 300
)

var errNoDatapoints = errors.New("no CPUUtilization datapoints returned")

// EC2API is the subset of the EC2 client used for listing.
type EC2API interface {
	ec2.DescribeInstancesAPIClient
	ec2.DescribeVolumesAPIClient
}

// CloudWatchAPI is the subset of the CloudWatch client used for utilization.
type CloudWatchAPI interface {
	GetMetricStatistics(ctx context.Context, params *cloudwatch.GetMetricStatisticsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error)
}

// AWSInventory lists EC2 instances and EBS volumes of one region and attaches
// the recent average CPU utilization of running instances.
type AWSInventory struct {
	location         location.UsageLocation
	ec2              EC2API
	cloudwatch       CloudWatchAPI
	logger           zerolog.Logger
	callTimeout      time.Duration
	usageConcurrency int
	now              func() time.Time
}

// Option configures an AWSInventory.
type Option func(*AWSInventory)

// WithCallTimeout sets the per-call timeout of vendor requests.
func WithCallTimeout(d time.Duration) Option {
	return func(a *AWSInventory) {
		if d > 0 {
			a.callTimeout = d
		}
	}
}

// WithUsageConcurrency sets how many CloudWatch queries may run at once.
func WithUsageConcurrency(n int) Option {
	return func(a *AWSInventory) {
		if n > 0 {
			a.usageConcurrency = n
		}
	}
}

// WithClock overrides the clock used to compute the metric window.
func WithClock(now func() time.Time) Option {
	return func(a *AWSInventory) {
		if now != nil {
			a.now = now
		}
	}
}

// LoadAWSConfig loads the default credential chain for region, optionally
// using a named shared-config profile.
func LoadAWSConfig(ctx context.Context, region, profile string) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// NewAWSFactory returns a Factory that loads AWS configuration for each
// requested location and builds an AWSInventory from it.
func NewAWSFactory(profile string, logger zerolog.Logger, opts ...Option) Factory {
	return func(ctx context.Context, loc location.UsageLocation) (Inventoriable, error) {
		cfg, err := LoadAWSConfig(ctx, loc.Region, profile)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindInventoryListingFailed, "failed to load AWS configuration", err)
		}
		return NewAWSInventory(cfg, loc, logger, opts...), nil
	}
}

// NewAWSInventory creates an AWSInventory with EC2 and CloudWatch clients built
// from cfg.
func NewAWSInventory(cfg aws.Config, loc location.UsageLocation, logger zerolog.Logger, opts ...Option) *AWSInventory {
	return NewAWSInventoryWithClients(loc, ec2.NewFromConfig(cfg), cloudwatch.NewFromConfig(cfg), logger, opts...)
}

// NewAWSInventoryWithClients creates an AWSInventory from explicit clients.
func NewAWSInventoryWithClients(loc location.UsageLocation, ec2Client EC2API, cwClient CloudWatchAPI, logger zerolog.Logger, opts ...Option) *AWSInventory {
	a := &AWSInventory{
		location:         loc,
		ec2:              ec2Client,
		cloudwatch:       cwClient,
		logger:           logger.With().Str("component", "aws_inventory").Str("aws_region", loc.Region).Logger(),
		callTimeout:      DefaultCallTimeout,
		usageConcurrency: DefaultUsageConcurrency,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ListResources implements Inventoriable.
func (a *AWSInventory) ListResources(ctx context.Context, tagFilter []string, includeBlockStorage bool) (model.Inventory, error) {
	start := time.Now()

	filters, err := model.ParseTagFilters(tagFilter)
	if err != nil {
		return model.Inventory{}, err
	}

	instances, err := a.listInstances(ctx)
	if err != nil {
		return model.Inventory{}, err
	}

	resources := make([]model.CloudResource, 0, len(instances))
	for _, instance := range instances {
		resource := a.instanceResource(instance)
		if !model.MatchesTagFilters(resource.Tags, filters) {
			continue
		}
		resources = append(resources, resource)
	}

	a.attachCPULoads(ctx, resources)

	if includeBlockStorage {
		volumes, err := a.listVolumes(ctx)
		if err != nil {
			return model.Inventory{}, err
		}
		for _, volume := range volumes {
			resource := a.volumeResource(volume)
			if !model.MatchesTagFilters(resource.Tags, filters) {
				continue
			}
			resources = append(resources, resource)
		}
	}

	if err := apperrors.FromContext(ctx); err != nil {
		return model.Inventory{}, err
	}

	for _, resource := range resources {
		a.logger.Debug().
			Str("resource_id", resource.ID).
			Str("resource_type", resource.Details.ResourceType()).
			Interface("tags", sanitizeTagsForLogging(resource.Tags)).
			Msg("resource inventoried")
	}

	elapsed := model.Duration(time.Since(start))
	a.logger.Info().
		Int("resources", len(resources)).
		Dur("duration", elapsed.Std()).
		Msg("inventory completed")

	return model.Inventory{
		Resources: resources,
		ExecutionStatistics: &model.ExecutionStatistics{
			InventoryDuration: elapsed,
			TotalDuration:     elapsed,
		},
	}, nil
}

func (a *AWSInventory) listInstances(ctx context.Context) ([]ec2types.Instance, error) {
	var instances []ec2types.Instance
	paginator := ec2.NewDescribeInstancesPaginator(a.ec2, &ec2.DescribeInstancesInput{})
	for paginator.HasMorePages() {
		callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
		page, err := paginator.NextPage(callCtx)
		cancel()
		if err != nil {
			return nil, a.listingError(ctx, "failed to describe instances", err)
		}
		for _, reservation := range page.Reservations {
			instances = append(instances, reservation.Instances...)
		}
	}
	return instances, nil
}

func (a *AWSInventory) listVolumes(ctx context.Context) ([]ec2types.Volume, error) {
	var volumes []ec2types.Volume
	paginator := ec2.NewDescribeVolumesPaginator(a.ec2, &ec2.DescribeVolumesInput{})
	for paginator.HasMorePages() {
		callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
		page, err := paginator.NextPage(callCtx)
		cancel()
		if err != nil {
			return nil, a.listingError(ctx, "failed to describe volumes", err)
		}
		volumes = append(volumes, page.Volumes...)
	}
	return volumes, nil
}

func (a *AWSInventory) listingError(ctx context.Context, msg string, err error) error {
	if cancelled := apperrors.FromContext(ctx); cancelled != nil {
		return cancelled
	}
	return apperrors.Wrap(apperrors.KindInventoryListingFailed, msg, err)
}

func (a *AWSInventory) instanceResource(instance ec2types.Instance) model.CloudResource {
	state := model.InstanceRunning
	if instance.State != nil {
		state = model.InstanceStateFromVendor(string(instance.State.Name))
	}
	return model.CloudResource{
		Provider: model.ProviderAWS,
		ID:       aws.ToString(instance.InstanceId),
		Location: a.location,
		Details: model.InstanceDetails{
			InstanceType: string(instance.InstanceType),
			Usage: &model.InstanceUsage{
				UsageDurationSeconds: uint64(cpuMetricWindow.Seconds()),
				State:                state,
			},
		},
		Tags: convertTags(instance.Tags),
	}
}

func (a *AWSInventory) volumeResource(volume ec2types.Volume) model.CloudResource {
	var attachments []model.StorageAttachment
	for _, attachment := range volume.Attachments {
		attachments = append(attachments, model.StorageAttachment{InstanceID: aws.ToString(attachment.InstanceId)})
	}
	size := aws.ToInt32(volume.Size)
	if size < 0 {
		size = 0
	}
	return model.CloudResource{
		Provider: model.ProviderAWS,
		ID:       aws.ToString(volume.VolumeId),
		Location: a.location,
		Details: model.BlockStorageDetails{
			StorageType: string(volume.VolumeType),
			Usage: &model.StorageUsage{
				SizeGB:               uint64(size),
				UsageDurationSeconds: uint64(cpuMetricWindow.Seconds()),
			},
			AttachedInstances: attachments,
		},
		Tags: convertTags(volume.Tags),
	}
}

// attachCPULoads fills AverageCPULoad for every running instance. Failures
// are logged and leave the load at 0.
func (a *AWSInventory) attachCPULoads(ctx context.Context, resources []model.CloudResource) {
	var g errgroup.Group
	g.SetLimit(a.usageConcurrency)

	for i := range resources {
		details, ok := resources[i].Details.(model.InstanceDetails)
		if !ok || details.Usage == nil || details.Usage.State != model.InstanceRunning {
			continue
		}
		usage := details.Usage
		id := resources[i].ID
		g.Go(func() error {
			load, err := a.averageCPULoad(ctx, id)
			if err != nil {
				if ctx.Err() == nil {
					a.logger.Warn().
						Str("instance_id", id).
						Err(err).
						Msg("cpu utilization unavailable, using 0")
				}
				return nil
			}
			usage.AverageCPULoad = load
			return nil
		})
	}
	_ = g.Wait()
}

func (a *AWSInventory) averageCPULoad(ctx context.Context, instanceID string) (float64, error) {
	end := a.now()
	callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	out, err := a.cloudwatch.GetMetricStatistics(callCtx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String("AWS/EC2"),
		MetricName: aws.String("CPUUtilization"),
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String("InstanceId"), Value: aws.String(instanceID)},
		},
		StartTime:  aws.Time(end.Add(-cpuMetricWindow)),
		EndTime:    aws.Time(end),
		Period:     aws.Int32(cpuMetricPeriodSeconds),
		Statistics: []cwtypes.Statistic{cwtypes.StatisticAverage},
	})
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindUsageUnavailable, "failed to get CPUUtilization", err)
	}

	var sum float64
	var count int
	for _, point := range out.Datapoints {
		if point.Average == nil || math.IsNaN(*point.Average) || math.IsInf(*point.Average, 0) {
			continue
		}
		sum += *point.Average
		count++
	}
	if count == 0 {
		return 0, apperrors.Wrap(apperrors.KindUsageUnavailable, "failed to get CPUUtilization", errNoDatapoints)
	}
	return impact.Clamp(sum/float64(count), 0, 100), nil
}

func convertTags(tags []ec2types.Tag) []model.Tag {
	converted := make([]model.Tag, 0, len(tags))
	for _, tag := range tags {
		t := model.Tag{Key: aws.ToString(tag.Key)}
		if tag.Value != nil {
			value := *tag.Value
			t.Value = &value
		}
		converted = append(converted, t)
	}
	return converted
}
