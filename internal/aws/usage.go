package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// directUsageHandlers maps quota codes to direct API counts, for quotas
// that publish no CloudWatch usage metric. The handler only applies when
// the requirement's service code matches.
var directUsageHandlers = map[string]directUsageHandler{
	// EC2
	"L-1216C47A": {serviceCode: "ec2", fetch: runningInstancesUsage},
	"L-0263D0A3": {serviceCode: "ec2", fetch: elasticIPsUsage},

	// VPC
	"L-F678F1CE": {serviceCode: "vpc", fetch: vpcsUsage},
	"L-DF5E4CA3": {serviceCode: "vpc", fetch: networkInterfacesUsage},
	"L-E79EC296": {serviceCode: "vpc", fetch: securityGroupsUsage},
}

type directUsageHandler struct {
	serviceCode string
	fetch       func(context.Context, aws.Config) (int64, error)
}

func runningInstancesUsage(ctx context.Context, cfg aws.Config) (int64, error) {
	client := ec2.NewFromConfig(cfg)

	input := &ec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{
				Name:   aws.String("instance-state-name"),
				Values: []string{"running"},
			},
		},
	}

	var count int64
	paginator := ec2.NewDescribeInstancesPaginator(client, input)
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, err
		}
		for _, reservation := range output.Reservations {
			count += int64(len(reservation.Instances))
		}
	}
	return count, nil
}

func elasticIPsUsage(ctx context.Context, cfg aws.Config) (int64, error) {
	client := ec2.NewFromConfig(cfg)
	result, err := client.DescribeAddresses(ctx, &ec2.DescribeAddressesInput{})
	if err != nil {
		return 0, err
	}
	return int64(len(result.Addresses)), nil
}

func vpcsUsage(ctx context.Context, cfg aws.Config) (int64, error) {
	client := ec2.NewFromConfig(cfg)

	var count int64
	paginator := ec2.NewDescribeVpcsPaginator(client, &ec2.DescribeVpcsInput{})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, err
		}
		count += int64(len(output.Vpcs))
	}
	return count, nil
}

func networkInterfacesUsage(ctx context.Context, cfg aws.Config) (int64, error) {
	client := ec2.NewFromConfig(cfg)

	var count int64
	paginator := ec2.NewDescribeNetworkInterfacesPaginator(client, &ec2.DescribeNetworkInterfacesInput{})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, err
		}
		count += int64(len(output.NetworkInterfaces))
	}
	return count, nil
}

func securityGroupsUsage(ctx context.Context, cfg aws.Config) (int64, error) {
	client := ec2.NewFromConfig(cfg)

	var count int64
	paginator := ec2.NewDescribeSecurityGroupsPaginator(client, &ec2.DescribeSecurityGroupsInput{})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, err
		}
		count += int64(len(output.SecurityGroups))
	}
	return count, nil
}
