package optimizer

import (
	"context"
	"sync"
	"time"

	"training-launcher/core/models"
	awsprovider "training-launcher/providers/aws"
)

// CostEstimator looks up training instance prices and turns them into run
// cost estimates. Prices are cached per instance type and region.
type CostEstimator struct {
	pricing  awsprovider.PricingAPI
	cacheTTL time.Duration
	mu       sync.RWMutex
	cache    map[priceKey]*models.InstancePrice
	now      func() time.Time
}

type priceKey struct {
	instanceType string
	region       string
}

// Estimate is the expected spend of one training job
type Estimate struct {
	Price         *models.InstancePrice
	InstanceCount int
	HourlyUSD     float64 // all instances
	MaxRunUSD     float64 // HourlyUSD over the job's max runtime
}

// NewCostEstimator creates a cost estimator. A non-positive ttl defaults to 15 minutes.
func NewCostEstimator(pricing awsprovider.PricingAPI, cacheTTL time.Duration) *CostEstimator {
	if cacheTTL <= 0 {
		cacheTTL = 15 * time.Minute
	}
	return &CostEstimator{
		pricing:  pricing,
		cacheTTL: cacheTTL,
		cache:    make(map[priceKey]*models.InstancePrice),
		now:      time.Now,
	}
}

// GetPrice returns the on-demand hourly price of one instance
func (ce *CostEstimator) GetPrice(ctx context.Context, instanceType, region string) (*models.InstancePrice, error) {
	key := priceKey{instanceType: instanceType, region: region}

	ce.mu.RLock()
	cached, ok := ce.cache[key]
	ce.mu.RUnlock()
	if ok && ce.now().Sub(cached.LastUpdated) < ce.cacheTTL {
		return cached, nil
	}

	price, err := awsprovider.FetchTrainingPrice(ctx, ce.pricing, instanceType, region)
	if err != nil {
		return nil, err
	}
	price.LastUpdated = ce.now()

	ce.mu.Lock()
	ce.cache[key] = price
	ce.mu.Unlock()

	return price, nil
}

// EstimateJob prices a training job before submission
func (ce *CostEstimator) EstimateJob(ctx context.Context, job *models.TrainingJob) (*Estimate, error) {
	price, err := ce.GetPrice(ctx, job.InstanceType, job.Region)
	if err != nil {
		return nil, err
	}

	hourly := HourlyCost(price.PricePerHour, job.InstanceCount)
	return &Estimate{
		Price:         price,
		InstanceCount: job.InstanceCount,
		HourlyUSD:     hourly,
		MaxRunUSD:     hourly * job.MaxRuntime.Hours(),
	}, nil
}

// HourlyCost is the price of running instanceCount instances for an hour
func HourlyCost(pricePerHour float64, instanceCount int) float64 {
	return pricePerHour * float64(instanceCount)
}

// BilledCost converts the billable wall-clock seconds SageMaker reports into
// USD. Billable time is per instance.
func BilledCost(pricePerHour float64, instanceCount, billableSeconds int) float64 {
	return HourlyCost(pricePerHour, instanceCount) * float64(billableSeconds) / 3600
}
