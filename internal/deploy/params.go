// Package deploy validates a target region and renders the deployment
// parameters file consumed by the infrastructure templates.
package deploy

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fortunestack/capacity-planner/internal/config"
)

// serviceRegions lists, per platform service the stack depends on, the
// regions where that service is offered. A deployable region must be
// supported by every entry.
var serviceRegions = map[string][]string{
	"static_sites": {
		"us-west-2",
		"us-east-1",
		"us-east-2",
		"eu-west-1",
		"ap-southeast-1",
	},
}

// RegionError reports a region that cannot be deployed to, with the set
// it was checked against so the caller can pick another.
type RegionError struct {
	Region  string
	Service string
	Allowed []string
}

func (e *RegionError) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("region %q is not supported by service %q (supported: %s)",
			e.Region, e.Service, strings.Join(e.Allowed, ", "))
	}
	return fmt.Sprintf("region %q is not in the allowed regions list (allowed: %s)",
		e.Region, strings.Join(e.Allowed, ", "))
}

// paramsSchema identifies the deployment-parameters document format the
// infrastructure templates consume.
const paramsSchema = "https://schema.management.azure.com/schemas/2019-04-01/deploymentParameters.json#"

// Params is the deployment parameters document.
type Params struct {
	Schema         string               `json:"$schema"`
	ContentVersion string               `json:"contentVersion"`
	Parameters     map[string]Parameter `json:"parameters"`
}

type Parameter struct {
	Value interface{} `json:"value"`
}

// ValidateRegion checks the target region against the configured
// allowed list and against every platform service's supported regions.
func ValidateRegion(cfg *config.Config, region string) error {
	if !contains(cfg.Regions, region) {
		return &RegionError{Region: region, Allowed: cfg.Regions}
	}

	services := make([]string, 0, len(serviceRegions))
	for service := range serviceRegions {
		services = append(services, service)
	}
	sort.Strings(services)

	for _, service := range services {
		supported := serviceRegions[service]
		if !contains(supported, region) {
			return &RegionError{Region: region, Service: service, Allowed: supported}
		}
	}
	return nil
}

// Generate renders the parameters document for a validated region.
func Generate(cfg *config.Config, region string) (*Params, error) {
	if err := ValidateRegion(cfg, region); err != nil {
		return nil, err
	}

	d := cfg.Deployment
	return &Params{
		Schema:         paramsSchema,
		ContentVersion: "1.0.0.0",
		Parameters: map[string]Parameter{
			"location":          {Value: region},
			"databaseAdminUser": {Value: d.DatabaseAdminUser},
			"databaseName":      {Value: d.DatabaseName},
			"databaseSku":       {Value: d.DatabaseSKU},
			"databaseStorage":   {Value: map[string]int{"storageSizeGB": d.DatabaseStorageGB}},
			"appCpu":            {Value: d.AppCPU},
			"appMemory":         {Value: d.AppMemory},
			"tags":              {Value: d.Tags},
		},
	}, nil
}

// Write pretty-prints the document to path.
func Write(path string, params *Params) error {
	data, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
