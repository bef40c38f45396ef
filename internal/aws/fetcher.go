package aws

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/servicequotas"
	sqtypes "github.com/aws/aws-sdk-go-v2/service/servicequotas/types"

	"github.com/fortunestack/capacity-planner/internal/model"
	"github.com/fortunestack/capacity-planner/internal/selector"
)

// Fetcher resolves one quota at a time: the limit from Service Quotas,
// the current usage from the quota's CloudWatch usage metric or, for
// quotas without one, from a direct API count. It implements
// selector.QuotaFetcher.
type Fetcher struct {
	client *Client
}

func NewFetcher(client *Client) *Fetcher {
	return &Fetcher{client: client}
}

func (f *Fetcher) FetchQuota(ctx context.Context, region string, req model.ResourceRequirement) (model.RegionQuota, error) {
	cfg, err := f.client.configFor(ctx, region)
	if err != nil {
		return model.RegionQuota{}, f.wrap(region, req, err)
	}

	quota, err := f.getServiceQuota(ctx, cfg, req)
	if err != nil {
		return model.RegionQuota{}, f.wrap(region, req, err)
	}
	if quota.Value == nil {
		return model.RegionQuota{}, f.wrap(region, req, errors.New("quota has no value"))
	}

	usage, err := f.getUsage(ctx, cfg, region, req, quota)
	if err != nil {
		return model.RegionQuota{}, f.wrap(region, req, err)
	}

	return model.RegionQuota{
		Region:      region,
		Service:     req.Service,
		ServiceCode: req.ServiceCode,
		QuotaCode:   req.QuotaCode,
		Usage:       usage,
		Limit:       int64(*quota.Value),
	}, nil
}

// getServiceQuota returns the applied quota, falling back to the AWS
// default when no account-specific value exists.
func (f *Fetcher) getServiceQuota(ctx context.Context, cfg aws.Config, req model.ResourceRequirement) (*sqtypes.ServiceQuota, error) {
	client := servicequotas.NewFromConfig(cfg)

	out, err := client.GetServiceQuota(ctx, &servicequotas.GetServiceQuotaInput{
		ServiceCode: &req.ServiceCode,
		QuotaCode:   &req.QuotaCode,
	})
	if err == nil {
		return out.Quota, nil
	}

	var notFound *sqtypes.NoSuchResourceException
	if !errors.As(err, &notFound) {
		return nil, err
	}

	def, err := client.GetAWSDefaultServiceQuota(ctx, &servicequotas.GetAWSDefaultServiceQuotaInput{
		ServiceCode: &req.ServiceCode,
		QuotaCode:   &req.QuotaCode,
	})
	if err != nil {
		return nil, err
	}
	return def.Quota, nil
}

// getUsage prefers the quota's advertised CloudWatch usage metric and
// falls back to a direct API count. A quota with neither source fails
// the fetch: no data means unknown, not zero.
func (f *Fetcher) getUsage(ctx context.Context, cfg aws.Config, region string, req model.ResourceRequirement, quota *sqtypes.ServiceQuota) (int64, error) {
	if quota.UsageMetric != nil && quota.UsageMetric.MetricNamespace != nil && quota.UsageMetric.MetricName != nil {
		usage, ok, err := f.usageFromCloudWatch(ctx, cfg, quota.UsageMetric)
		if err != nil {
			return 0, err
		}
		if ok {
			return usage, nil
		}
	}

	handler, ok := directUsageHandlers[req.QuotaCode]
	if !ok || handler.serviceCode != req.ServiceCode {
		return 0, fmt.Errorf("no usage source for quota %s/%s in %s", req.ServiceCode, req.QuotaCode, region)
	}
	return handler.fetch(ctx, cfg)
}

func (f *Fetcher) usageFromCloudWatch(ctx context.Context, cfg aws.Config, metric *sqtypes.MetricInfo) (int64, bool, error) {
	cwClient := cloudwatch.NewFromConfig(cfg)

	stat := "Maximum"
	if metric.MetricStatisticRecommendation != nil && *metric.MetricStatisticRecommendation != "" {
		stat = *metric.MetricStatisticRecommendation
	}

	var dimensions []cwtypes.Dimension
	for key, value := range metric.MetricDimensions {
		k, v := key, value
		dimensions = append(dimensions, cwtypes.Dimension{Name: &k, Value: &v})
	}

	endTime := time.Now()
	startTime := endTime.Add(-24 * time.Hour)

	out, err := cwClient.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  metric.MetricNamespace,
		MetricName: metric.MetricName,
		Dimensions: dimensions,
		StartTime:  &startTime,
		EndTime:    &endTime,
		Period:     aws.Int32(300),
		Statistics: []cwtypes.Statistic{cwtypes.Statistic(stat)},
	})
	if err != nil {
		return 0, false, err
	}

	latest := latestDatapoint(out.Datapoints)
	if latest == nil {
		return 0, false, nil
	}
	return int64(math.Round(datapointValue(latest, stat))), true, nil
}

func latestDatapoint(datapoints []cwtypes.Datapoint) *cwtypes.Datapoint {
	var latest *cwtypes.Datapoint
	for i := range datapoints {
		if latest == nil || datapoints[i].Timestamp.After(*latest.Timestamp) {
			latest = &datapoints[i]
		}
	}
	return latest
}

func datapointValue(datapoint *cwtypes.Datapoint, stat string) float64 {
	switch stat {
	case "Average":
		if datapoint.Average != nil {
			return *datapoint.Average
		}
	case "Sum":
		if datapoint.Sum != nil {
			return *datapoint.Sum
		}
	case "Minimum":
		if datapoint.Minimum != nil {
			return *datapoint.Minimum
		}
	default:
		if datapoint.Maximum != nil {
			return *datapoint.Maximum
		}
	}
	return 0
}

func (f *Fetcher) wrap(region string, req model.ResourceRequirement, err error) error {
	return &selector.QuotaFetchError{
		Region:    region,
		Service:   req.Service,
		QuotaCode: req.QuotaCode,
		Err:       err,
	}
}
