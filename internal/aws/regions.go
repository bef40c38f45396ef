package aws

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
)

// ListRegions returns the enabled regions for the account, sorted. The
// lookup runs against us-east-1, which serves DescribeRegions for every
// partition-wide query.
func (f *Fetcher) ListRegions(ctx context.Context) ([]string, error) {
	cfg, err := f.client.configFor(ctx, "us-east-1")
	if err != nil {
		return nil, err
	}

	client := ec2.NewFromConfig(cfg)
	allRegions := false
	output, err := client.DescribeRegions(ctx, &ec2.DescribeRegionsInput{
		AllRegions: &allRegions,
	})
	if err != nil {
		return nil, err
	}

	regions := make([]string, 0, len(output.Regions))
	for _, r := range output.Regions {
		if r.RegionName != nil {
			regions = append(regions, *r.RegionName)
		}
	}
	sort.Strings(regions)
	return regions, nil
}
