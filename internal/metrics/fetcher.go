package metrics

import (
	"context"

	"github.com/fortunestack/capacity-planner/internal/model"
	"github.com/fortunestack/capacity-planner/internal/selector"
)

type instrumentedFetcher struct {
	next selector.QuotaFetcher
}

// InstrumentFetcher counts quota fetches by region and result.
func InstrumentFetcher(next selector.QuotaFetcher) selector.QuotaFetcher {
	return &instrumentedFetcher{next: next}
}

func (f *instrumentedFetcher) FetchQuota(ctx context.Context, region string, req model.ResourceRequirement) (model.RegionQuota, error) {
	quota, err := f.next.FetchQuota(ctx, region, req)
	result := "ok"
	if err != nil {
		result = "error"
	}
	QuotaFetchTotal.WithLabelValues(region, result).Inc()
	return quota, err
}
