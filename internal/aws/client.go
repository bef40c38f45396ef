// Package aws implements the selector's quota-fetch capability against
// AWS Service Quotas, with CloudWatch usage metrics and direct EC2
// counts as usage sources.
package aws

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// Client holds per-region SDK configuration. Loading the default config
// resolves the credential chain, so resolved configs are cached per
// region for the lifetime of the process.
type Client struct {
	mu      sync.Mutex
	configs map[string]aws.Config
}

func NewClient() *Client {
	return &Client{configs: make(map[string]aws.Config)}
}

func (c *Client) configFor(ctx context.Context, region string) (aws.Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cfg, ok := c.configs[region]; ok {
		return cfg, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return aws.Config{}, err
	}
	c.configs[region] = cfg
	return cfg, nil
}
