package tracking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/julianstephens/stride/internal/cli"
	"github.com/julianstephens/stride/internal/models"
)

type MetricCmd struct {
	Add  MetricAddCmd  `cmd:"" help:"Add a metric, optionally linked to goals."`
	Log  MetricLogCmd  `cmd:"" help:"Record a metric value."`
	List MetricListCmd `cmd:"" help:"List metrics with their latest value." default:"1"`
}

type MetricAddCmd struct {
	Name      string   `arg:"" help:"Metric name."`
	Unit      string   `help:"Unit of measurement, e.g. kg or km."`
	Target    *float64 `help:"Target value."`
	Direction string   `help:"Which way the value should move." enum:"higher,lower,target" default:"higher"`
	Goals     []string `help:"Goal to link (ID, ID prefix or title; repeatable)." short:"g" name:"goal"`
}

func (c *MetricAddCmd) Run(ctx *cli.Context) error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return errors.New("metric name cannot be empty")
	}
	direction := models.MetricDirection(c.Direction)
	if !direction.IsValid() {
		return fmt.Errorf("invalid direction %q", c.Direction)
	}

	goalIDs, err := ctx.ResolveGoalIDs(context.Background(), c.Goals)
	if err != nil {
		return err
	}

	now := ctx.Now()
	metric := models.Metric{
		ID:          uuid.New().String(),
		Name:        name,
		Unit:        strings.TrimSpace(c.Unit),
		TargetValue: c.Target,
		Direction:   direction,
		GoalIDs:     goalIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := ctx.Store.AddMetric(metric); err != nil {
		return fmt.Errorf("failed to add metric: %w", err)
	}

	ctx.Printf("Added metric: %s (%s)\n", metric.Name, cli.ShortID(metric.ID))
	if metric.TargetValue == nil {
		ctx.Println("  No target set; this metric will not count toward goal progress")
	}
	return nil
}

type MetricLogCmd struct {
	Metric string  `arg:"" help:"Metric ID, ID prefix or name."`
	Value  float64 `arg:"" help:"Recorded value."`
}

func (c *MetricLogCmd) Run(ctx *cli.Context) error {
	metric, err := findMetric(ctx, c.Metric)
	if err != nil {
		return err
	}

	now := ctx.Now()
	entry := models.MetricLog{
		ID:       uuid.New().String(),
		MetricID: metric.ID,
		Value:    c.Value,
		LoggedAt: now,
	}
	if err := ctx.Store.AddMetricLog(entry); err != nil {
		return fmt.Errorf("failed to log metric: %w", err)
	}
	if err := ctx.RecordActivity(metric.GoalIDs, now); err != nil {
		return err
	}

	ctx.Printf("Logged %s: %g%s\n", metric.Name, c.Value, unitSuffix(metric.Unit))
	return nil
}

func findMetric(ctx *cli.Context, ref string) (models.Metric, error) {
	metrics, err := ctx.Store.GetAllMetrics()
	if err != nil {
		return models.Metric{}, fmt.Errorf("failed to get metrics: %w", err)
	}
	return resolve("metric", ref, metrics,
		func(m models.Metric) string { return m.ID },
		func(m models.Metric) string { return m.Name })
}

type MetricListCmd struct{}

func (c *MetricListCmd) Run(ctx *cli.Context) error {
	metrics, err := ctx.Store.GetAllMetrics()
	if err != nil {
		return fmt.Errorf("failed to get metrics: %w", err)
	}
	if len(metrics) == 0 {
		ctx.Println("No metrics found")
		return nil
	}

	bg := context.Background()
	ctx.Println("Metrics:")
	for _, m := range metrics {
		logs, err := ctx.Store.GetMetricLogs(bg, m.ID)
		if err != nil {
			return fmt.Errorf("failed to get logs for metric %s: %w", m.Name, err)
		}

		current := "-"
		if len(logs) > 0 {
			current = fmt.Sprintf("%g%s", logs[len(logs)-1].Value, unitSuffix(m.Unit))
		}
		target := "no target"
		if m.TargetValue != nil {
			target = fmt.Sprintf("%s %g%s", m.Direction, *m.TargetValue, unitSuffix(m.Unit))
		}
		ctx.Printf("  %-24s %-12s %-20s %s\n", m.Name, current, target, cli.ShortID(m.ID))
	}
	return nil
}

func unitSuffix(unit string) string {
	if unit == "" {
		return ""
	}
	return " " + unit
}
