package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/bitetrack-backend/internal/drops"
	"github.com/angelmondragon/bitetrack-backend/pkg/logger"
)

const defaultSummaryWindow = 24 * time.Hour

type wasteSummarizer interface {
	Summarize(ctx context.Context, input drops.SummaryInput) (*drops.WasteSummary, error)
}

type wasteGauges interface {
	Reset()
	SetReason(reason string, units int64, valueLost float64)
}

type WasteSummaryJobParams struct {
	Logger  *logger.Logger
	Drops   wasteSummarizer
	Metrics wasteGauges
	Window  time.Duration
	Now     func() time.Time
}

// wasteSummaryJob logs the trailing waste totals per reason and mirrors them
// into gauges for dashboards.
type wasteSummaryJob struct {
	logg    *logger.Logger
	drops   wasteSummarizer
	metrics wasteGauges
	window  time.Duration
	now     func() time.Time
}

func NewWasteSummaryJob(params WasteSummaryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Drops == nil {
		return nil, fmt.Errorf("drops service required")
	}
	job := &wasteSummaryJob{
		logg:    params.Logger,
		drops:   params.Drops,
		metrics: params.Metrics,
		window:  params.Window,
		now:     params.Now,
	}
	if job.window <= 0 {
		job.window = defaultSummaryWindow
	}
	if job.now == nil {
		job.now = time.Now
	}
	return job, nil
}

func (j *wasteSummaryJob) Name() string { return "waste-summary" }

func (j *wasteSummaryJob) Run(ctx context.Context) error {
	to := j.now().UTC()
	summary, err := j.drops.Summarize(ctx, drops.SummaryInput{From: to.Add(-j.window), To: to})
	if err != nil {
		return fmt.Errorf("waste summary: %w", err)
	}

	if j.metrics != nil {
		j.metrics.Reset()
	}
	byReason := make(map[string]any, len(summary.Reasons))
	for _, row := range summary.Reasons {
		value, _ := row.ValueLost.Float64()
		if j.metrics != nil {
			j.metrics.SetReason(row.Reason.String(), row.Units, value)
		}
		byReason[row.Reason.String()] = map[string]any{
			"drops":      row.Drops,
			"units":      row.Units,
			"value_lost": row.ValueLost.StringFixed(2),
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"from":             summary.From,
		"to":               summary.To,
		"total_drops":      summary.TotalDrops,
		"total_units":      summary.TotalUnits,
		"total_value_lost": summary.TotalValueLost.StringFixed(2),
		"by_reason":        byReason,
	}), "waste summary")
	return nil
}
