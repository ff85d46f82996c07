package system

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/stride/internal/cli"
	"github.com/julianstephens/stride/internal/config"
)

type DoctorCmd struct{}

type check struct {
	name    string
	// needsDB checks are skipped when the database is unreachable.
	needsDB bool
	run     func(*cli.Context) error
}

var checks = []check{
	{"Schema version", true, checkSchemaVersion},
	{"Link integrity", true, checkOrphanLinks},
	{"Goal scoring", true, checkScoring},
	{"Policy", false, checkPolicy},
	{"Clock/timezone", false, checkClockTimezone},
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	ctx.Println("Running diagnostics...")
	ctx.Println()

	hasError := false
	dbReachable := false

	if err := checkDBReachable(ctx); err != nil {
		ctx.Printf("❌ Database reachable: FAIL\n")
		ctx.Printf("   Error: %v\n", err)
		hasError = true
	} else {
		ctx.Printf("✓ Database reachable: OK\n")
		dbReachable = true
	}

	for _, c := range checks {
		if c.needsDB && !dbReachable {
			ctx.Printf("⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}
		if err := c.run(ctx); err != nil {
			ctx.Printf("❌ %s: FAIL\n", c.name)
			ctx.Printf("   Error: %v\n", err)
			hasError = true
			continue
		}
		ctx.Printf("✓ %s: OK\n", c.name)
	}
	reportBackups(ctx)

	ctx.Println()
	if hasError {
		ctx.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}

	ctx.Println("All diagnostics passed!")
	return nil
}

func checkDBReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ctx.Store.Ping(pingCtx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

func checkSchemaVersion(ctx *cli.Context) error {
	current, latest, err := ctx.Store.SchemaVersion()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if current > latest {
		return fmt.Errorf("database schema version (%d) is newer than supported version (%d)", current, latest)
	}
	if current < latest {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d (run 'stride migrate')", current, latest)
	}
	return nil
}

func checkOrphanLinks(ctx *cli.Context) error {
	n, err := ctx.Store.CountOrphanLinks()
	if err != nil {
		return fmt.Errorf("failed to check goal links: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("found %d links referencing missing goals, tasks, metrics or habits", n)
	}
	return nil
}

// checkScoring loads every goal and reports goals whose sources could not be read.
func checkScoring(ctx *cli.Context) error {
	bg := context.Background()
	goals, err := ctx.Store.GetAllGoals(bg, false)
	if err != nil {
		return fmt.Errorf("failed to get goals: %w", err)
	}

	results, err := ctx.Score(bg, goals)
	if err != nil {
		return err
	}

	failed, degraded := 0, 0
	for _, g := range goals {
		res, ok := results[g.ID]
		switch {
		case !ok:
			failed++
		case len(res.Degraded) > 0:
			degraded++
		}
	}
	if failed > 0 || degraded > 0 {
		return fmt.Errorf("%d of %d goals failed to score, %d scored with missing sources", failed, len(goals), degraded)
	}
	return nil
}

func checkPolicy(ctx *cli.Context) error {
	if _, err := config.LoadPolicy(ctx.PolicyPath); err != nil {
		return err
	}
	return nil
}

// reportBackups warns about missing SQLite backups without failing diagnostics.
func reportBackups(ctx *cli.Context) {
	mgr, err := backupManager(ctx)
	if err != nil {
		return
	}
	backups, err := mgr.List()
	switch {
	case err != nil:
		ctx.Printf("⚠️  Backups: %v\n", err)
	case len(backups) == 0:
		ctx.Printf("⚠️  Backups: none found (run 'stride backup create')\n")
	default:
		ctx.Printf("✓ Backups: %d, latest %s\n", len(backups), backups[0].Timestamp.Format("2006-01-02 15:04"))
	}
}

func checkClockTimezone(ctx *cli.Context) error {
	now := ctx.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	return nil
}
