package monitoring

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"training-launcher/core/models"
)

// RunLister lists recorded runs
type RunLister interface {
	ListRuns(ctx context.Context, status *models.JobStatus, limit int) ([]*models.Run, error)
}

// Upper bound on runs scanned per scrape
const metricsRunLimit = 1000

// MetricsExporter renders run history and its estimated cost for Prometheus.
// Everything is derived from the recorded runs, so the exporter works in a
// process other than the one waiting on the jobs.
type MetricsExporter struct {
	runs RunLister
	now  func() time.Time
}

// NewMetricsExporter creates a new metrics exporter
func NewMetricsExporter(runs RunLister) *MetricsExporter {
	return &MetricsExporter{
		runs: runs,
		now:  time.Now,
	}
}

// GetPrometheusMetrics returns metrics in Prometheus text format
func (me *MetricsExporter) GetPrometheusMetrics(ctx context.Context) (string, error) {
	runs, err := me.runs.ListRuns(ctx, nil, metricsRunLimit)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	now := me.now()

	byStatus := map[models.JobStatus]int{
		models.JobStatusSubmitted: 0,
		models.JobStatusRunning:   0,
		models.JobStatusSucceeded: 0,
		models.JobStatusFailed:    0,
	}
	hourlySpend := 0.0
	jobCosts := map[string]float64{}
	for _, run := range runs {
		byStatus[run.Status]++
		if run.PricePerHourUSD == nil {
			continue
		}
		hourly := *run.PricePerHourUSD * float64(run.InstanceCount)
		if !run.Status.Terminal() {
			hourlySpend += hourly
		}
		if cost, ok := runCost(run, hourly, now); ok {
			jobCosts[run.JobName] = cost
		}
	}

	b.WriteString("# HELP launcher_runs Number of recorded runs by status\n")
	b.WriteString("# TYPE launcher_runs gauge\n")
	statuses := make([]string, 0, len(byStatus))
	for s := range byStatus {
		statuses = append(statuses, string(s))
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		fmt.Fprintf(&b, "launcher_runs{status=%q} %d\n", s, byStatus[models.JobStatus(s)])
	}

	b.WriteString("# HELP launcher_hourly_spend_usd Estimated on-demand spend per hour of unfinished runs\n")
	b.WriteString("# TYPE launcher_hourly_spend_usd gauge\n")
	fmt.Fprintf(&b, "launcher_hourly_spend_usd %.4f\n", hourlySpend)

	names := make([]string, 0, len(jobCosts))
	total := 0.0
	for name, cost := range jobCosts {
		names = append(names, name)
		total += cost
	}
	sort.Strings(names)

	b.WriteString("# HELP launcher_job_cost_usd Estimated on-demand cost of a run since submission\n")
	b.WriteString("# TYPE launcher_job_cost_usd gauge\n")
	for _, name := range names {
		fmt.Fprintf(&b, "launcher_job_cost_usd{job_name=%q} %.4f\n", name, jobCosts[name])
	}
	b.WriteString("# HELP launcher_total_cost_usd Estimated on-demand cost of all recorded runs\n")
	b.WriteString("# TYPE launcher_total_cost_usd gauge\n")
	fmt.Fprintf(&b, "launcher_total_cost_usd %.4f\n", total)

	return b.String(), nil
}

// runCost accrues hourly from submission until now, or until the last status
// update for a finished run
func runCost(run *models.Run, hourly float64, now time.Time) (float64, bool) {
	if run.CreatedAt.IsZero() {
		return 0, false
	}
	end := now
	if run.Status.Terminal() && !run.UpdatedAt.IsZero() {
		end = run.UpdatedAt
	}
	hours := end.Sub(run.CreatedAt).Hours()
	if hours < 0 {
		hours = 0
	}
	return hourly * hours, true
}
