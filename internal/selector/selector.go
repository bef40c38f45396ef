// Package selector decides which cloud regions can host a deployment,
// given its resource requirements and live per-region quota data.
package selector

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/fortunestack/capacity-planner/internal/model"
)

const (
	defaultMaxConcurrency = 10
	defaultFetchTimeout   = 30 * time.Second
)

// QuotaFetcher is the capability the selector needs from a cloud
// provider: usage and limit for one quota in one region.
type QuotaFetcher interface {
	FetchQuota(ctx context.Context, region string, req model.ResourceRequirement) (model.RegionQuota, error)
}

// Selector evaluates candidate regions against a requirement set. Region
// evaluations are independent and run concurrently up to maxConcurrency;
// each quota fetch gets its own timeout.
type Selector struct {
	fetcher        QuotaFetcher
	maxConcurrency int
	fetchTimeout   time.Duration
	logger         *logrus.Logger
}

// Option configures a Selector.
type Option func(*Selector)

// WithMaxConcurrency bounds the number of regions evaluated in flight.
func WithMaxConcurrency(n int) Option {
	return func(s *Selector) {
		if n > 0 {
			s.maxConcurrency = n
		}
	}
}

// WithFetchTimeout bounds each individual quota fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Selector) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithLogger sets the logger used for per-region fetch warnings.
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Selector) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(fetcher QuotaFetcher, opts ...Option) *Selector {
	s := &Selector{
		fetcher:        fetcher,
		maxConcurrency: defaultMaxConcurrency,
		fetchTimeout:   defaultFetchTimeout,
		logger:         logrus.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select checks every candidate region against the requirement set and
// returns a report partitioned into feasible regions (descending total
// headroom, ties by region ascending) and diagnostics (region
// ascending). A fetch failure downgrades the affected resource to
// unknown and the region to the diagnostic list; it never fails the
// call. An empty feasible list is a normal outcome.
func (s *Selector) Select(ctx context.Context, requirements model.RequirementSet, candidateRegions []string) (*model.Report, error) {
	if err := validate(requirements); err != nil {
		return nil, err
	}

	regions := dedupe(candidateRegions)

	results := make(chan model.FeasibilityResult, len(regions))

	// One goroutine per region, bounded. Goroutines always return nil so
	// that a failure in one region cannot cancel its siblings.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)

	for _, region := range regions {
		region := region
		g.Go(func() error {
			results <- s.evaluateRegion(gctx, region, requirements)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(results)

	report := &model.Report{CheckedAt: time.Now().UTC()}
	for result := range results {
		if result.Feasible {
			report.Feasible = append(report.Feasible, result)
		} else {
			report.Diagnostics = append(report.Diagnostics, result)
		}
	}

	sort.Slice(report.Feasible, func(i, j int) bool {
		a, b := report.Feasible[i], report.Feasible[j]
		if a.TotalHeadroom != b.TotalHeadroom {
			return a.TotalHeadroom > b.TotalHeadroom
		}
		return a.Region < b.Region
	})
	sort.Slice(report.Diagnostics, func(i, j int) bool {
		return report.Diagnostics[i].Region < report.Diagnostics[j].Region
	})

	return report, nil
}

// evaluateRegion fetches every required quota for one region and derives
// its feasibility. Each fetch runs under its own timeout; errors are
// recorded on the resource as an unknown marker instead of propagating.
func (s *Selector) evaluateRegion(ctx context.Context, region string, requirements model.RequirementSet) model.FeasibilityResult {
	resources := make([]model.ResourceHeadroom, 0, len(requirements))

	for _, service := range requirements.Services() {
		req := requirements[service]

		fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
		quota, err := s.fetcher.FetchQuota(fetchCtx, region, req)
		cancel()

		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"region":  region,
				"service": service,
				"quota":   req.QuotaCode,
			}).Warnf("quota fetch failed: %v", err)

			resources = append(resources, model.ResourceHeadroom{
				Service:   service,
				QuotaCode: req.QuotaCode,
				Required:  req.Required,
				Known:     false,
				Error:     err.Error(),
			})
			continue
		}

		resources = append(resources, model.ResourceHeadroom{
			Service:   service,
			QuotaCode: req.QuotaCode,
			Usage:     quota.Usage,
			Limit:     quota.Limit,
			Required:  req.Required,
			Headroom:  quota.Limit - quota.Usage - req.Required,
			Known:     true,
		})
	}

	return model.NewFeasibilityResult(region, resources)
}

func validate(requirements model.RequirementSet) error {
	if len(requirements) == 0 {
		return &ConfigurationError{Reason: "requirement set is empty"}
	}
	for name, req := range requirements {
		if req.Required <= 0 {
			return &ConfigurationError{Reason: "required quantity must be a positive integer", Service: name}
		}
		if req.ServiceCode == "" {
			return &ConfigurationError{Reason: "service code is missing", Service: name}
		}
		if req.QuotaCode == "" {
			return &ConfigurationError{Reason: "quota code is missing", Service: name}
		}
	}
	return nil
}

// dedupe drops repeated candidate regions, keeping first-seen order.
func dedupe(regions []string) []string {
	seen := make(map[string]struct{}, len(regions))
	out := make([]string, 0, len(regions))
	for _, r := range regions {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
