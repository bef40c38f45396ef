package model

import (
	"sort"
	"time"
)

// ResourceRequirement describes one resource a deployment needs: a
// service (unique name within a requirement set), the quota that governs
// it, and how much of it the deployment will consume.
type ResourceRequirement struct {
	Service     string `json:"service"`
	ServiceCode string `json:"service_code"`
	QuotaCode   string `json:"quota_code"`
	Required    int64  `json:"required"`
	Unit        string `json:"unit,omitempty"`
}

// RequirementSet holds all requirements for a deployment, keyed by
// service name. It is immutable once loaded.
type RequirementSet map[string]ResourceRequirement

// Services returns the service names in sorted order so that iteration
// over a set is deterministic.
func (rs RequirementSet) Services() []string {
	names := make([]string, 0, len(rs))
	for name := range rs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegionQuota is one quota observation for a region. Usage above the
// limit is a valid observed state, not an error.
type RegionQuota struct {
	Region      string `json:"region"`
	Service     string `json:"service"`
	ServiceCode string `json:"service_code"`
	QuotaCode   string `json:"quota_code"`
	Usage       int64  `json:"usage"`
	Limit       int64  `json:"limit"`
}

// ResourceHeadroom is the per-resource outcome of a feasibility check.
// Known is false when the quota could not be fetched; Headroom is only
// meaningful when Known is true.
type ResourceHeadroom struct {
	Service   string `json:"service"`
	QuotaCode string `json:"quota_code"`
	Usage     int64  `json:"usage"`
	Limit     int64  `json:"limit"`
	Required  int64  `json:"required"`
	Headroom  int64  `json:"headroom"`
	Known     bool   `json:"known"`
	Error     string `json:"error,omitempty"`
}

// FeasibilityResult is the verdict for one candidate region.
type FeasibilityResult struct {
	Region        string             `json:"region"`
	Resources     []ResourceHeadroom `json:"resources"`
	Feasible      bool               `json:"feasible"`
	TotalHeadroom int64              `json:"total_headroom"`
}

// Unknown reports whether any resource in the region could not be
// queried. Such regions are never feasible but are also distinct from
// regions known to lack capacity.
func (r FeasibilityResult) Unknown() bool {
	for _, res := range r.Resources {
		if !res.Known {
			return true
		}
	}
	return false
}

// Report is the full outcome of a selection run. An empty Feasible list
// is a normal result; Diagnostics carries every region that was checked
// but cannot host the deployment, so callers can tell "no capacity"
// from "could not be queried".
type Report struct {
	Feasible    []FeasibilityResult `json:"feasible"`
	Diagnostics []FeasibilityResult `json:"diagnostics"`
	CheckedAt   time.Time           `json:"checked_at"`
}

// FeasibleRegions returns the region identifiers of the feasible list,
// in report order.
func (r *Report) FeasibleRegions() []string {
	regions := make([]string, 0, len(r.Feasible))
	for _, fr := range r.Feasible {
		regions = append(regions, fr.Region)
	}
	return regions
}

// NewFeasibilityResult assembles a result from per-resource headrooms:
// resources are ordered by service name, total headroom is summed over
// known resources, and the region is feasible iff every headroom is
// known and non-negative (zero headroom still fits).
func NewFeasibilityResult(region string, resources []ResourceHeadroom) FeasibilityResult {
	sort.Slice(resources, func(i, j int) bool {
		return resources[i].Service < resources[j].Service
	})

	feasible := true
	var total int64
	for _, res := range resources {
		if !res.Known || res.Headroom < 0 {
			feasible = false
		}
		if res.Known {
			total += res.Headroom
		}
	}

	return FeasibilityResult{
		Region:        region,
		Resources:     resources,
		Feasible:      feasible,
		TotalHeadroom: total,
	}
}
