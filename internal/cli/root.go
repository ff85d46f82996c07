package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/julianstephens/stride/internal/loader"
	"github.com/julianstephens/stride/internal/models"
	"github.com/julianstephens/stride/internal/storage"
)

type Context struct {
	Store      storage.Provider
	Policy     models.Policy
	PolicyPath string
	Debug      bool
	// Out receives command output. Defaults to os.Stdout.
	Out        io.Writer
	// Clock overrides time.Now, for tests.
	Clock      func() time.Time
}

func (c *Context) Now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

func (c *Context) out() io.Writer {
	if c.Out != nil {
		return c.Out
	}
	return os.Stdout
}

func (c *Context) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out(), format, args...)
}

func (c *Context) Println(args ...interface{}) {
	fmt.Fprintln(c.out(), args...)
}

// NewLoader returns a goal loader over the context's store and policy.
func (c *Context) NewLoader() (*loader.Loader, error) {
	return loader.New(c.Store, loader.WithPolicy(c.Policy), loader.WithClock(c.Now))
}

// Score loads every goal through a fresh loader and returns the results keyed
// by goal ID. Goals whose load failed are missing from the map.
func (c *Context) Score(ctx context.Context, goals []models.Goal) (map[string]loader.Result, error) {
	l, err := c.NewLoader()
	if err != nil {
		return nil, err
	}
	l.WarmGoals(ctx, goals)
	return l.Results(), nil
}

// ErrAmbiguous is returned when a reference matches more than one entity.
var ErrAmbiguous = errors.New("ambiguous reference")

// ResolveGoal finds a live goal by exact ID, unique ID prefix, or
// case-insensitive title.
func (c *Context) ResolveGoal(ctx context.Context, ref string) (models.Goal, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return models.Goal{}, errors.New("goal reference cannot be empty")
	}

	if g, err := c.Store.GetGoal(ctx, ref); err == nil {
		return g, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return models.Goal{}, err
	}

	goals, err := c.Store.GetAllGoals(ctx, false)
	if err != nil {
		return models.Goal{}, err
	}

	var matches []models.Goal
	for _, g := range goals {
		if strings.HasPrefix(g.ID, ref) || strings.EqualFold(g.Title, ref) {
			matches = append(matches, g)
		}
	}

	switch len(matches) {
	case 0:
		return models.Goal{}, fmt.Errorf("goal %q: %w", ref, storage.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return models.Goal{}, fmt.Errorf("goal %q matches %d goals: %w", ref, len(matches), ErrAmbiguous)
	}
}

// ResolveGoalIDs resolves a list of goal references to IDs.
func (c *Context) ResolveGoalIDs(ctx context.Context, refs []string) ([]string, error) {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		g, err := c.ResolveGoal(ctx, ref)
		if err != nil {
			return nil, err
		}
		ids = append(ids, g.ID)
	}
	return ids, nil
}

// RecordActivity marks every linked goal as active at the given time.
func (c *Context) RecordActivity(goalIDs []string, at time.Time) error {
	if err := c.Store.TouchGoals(goalIDs, at); err != nil {
		return fmt.Errorf("failed to record goal activity: %w", err)
	}
	return nil
}

// SortGoals orders goals by priority (highest first) then title.
func SortGoals(goals []models.Goal) {
	sort.SliceStable(goals, func(i, j int) bool {
		if goals[i].Priority != goals[j].Priority {
			return goals[i].Priority > goals[j].Priority
		}
		return strings.ToLower(goals[i].Title) < strings.ToLower(goals[j].Title)
	})
}
