package monitoring

import (
	"sync"
	"time"
)

// CostTracker accrues the on-demand cost of running training jobs
type CostTracker struct {
	jobCosts map[string]*JobCost
	mu       sync.RWMutex
	now      func() time.Time
}

// JobCost tracks cost for a single job
type JobCost struct {
	JobName       string
	PricePerHour  float64
	InstanceCount int
	StartTime     time.Time
	RunningCost   float64
	LastUpdate    time.Time
}

// NewCostTracker creates a new cost tracker
func NewCostTracker() *CostTracker {
	return &CostTracker{
		jobCosts: make(map[string]*JobCost),
		now:      time.Now,
	}
}

// TrackJob starts accruing cost for a job from start
func (ct *CostTracker) TrackJob(jobName string, pricePerHour float64, instanceCount int, start time.Time) {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	ct.jobCosts[jobName] = &JobCost{
		JobName:       jobName,
		PricePerHour:  pricePerHour,
		InstanceCount: instanceCount,
		StartTime:     start,
		LastUpdate:    start,
	}
}

// IsTracking reports whether a job is tracked
func (ct *CostTracker) IsTracking(jobName string) bool {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	_, ok := ct.jobCosts[jobName]
	return ok
}

// Rate returns the per-instance hourly price and instance count of a tracked job
func (ct *CostTracker) Rate(jobName string) (pricePerHour float64, instanceCount int, ok bool) {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	jobCost, exists := ct.jobCosts[jobName]
	if !exists {
		return 0, 0, false
	}
	return jobCost.PricePerHour, jobCost.InstanceCount, true
}

// StopTracking stops tracking a job
func (ct *CostTracker) StopTracking(jobName string) {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	delete(ct.jobCosts, jobName)
}

// Update accrues cost since the last update and returns the running total
func (ct *CostTracker) Update(jobName string) float64 {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	jobCost, exists := ct.jobCosts[jobName]
	if !exists {
		return 0.0
	}

	now := ct.now()
	deltaHours := now.Sub(jobCost.LastUpdate).Hours()
	if deltaHours > 0 {
		jobCost.RunningCost += jobCost.PricePerHour * float64(jobCost.InstanceCount) * deltaHours
		jobCost.LastUpdate = now
	}

	return jobCost.RunningCost
}

// GetRunningCost returns the current running cost for a job
func (ct *CostTracker) GetRunningCost(jobName string) float64 {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	jobCost, exists := ct.jobCosts[jobName]
	if !exists {
		return 0.0
	}

	return jobCost.RunningCost
}

// RunningCosts returns the running cost of every tracked job
func (ct *CostTracker) RunningCosts() map[string]float64 {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	costs := make(map[string]float64, len(ct.jobCosts))
	for name, jc := range ct.jobCosts {
		costs[name] = jc.RunningCost
	}
	return costs
}
