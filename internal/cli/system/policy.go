package system

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/stride/internal/cli"
	"github.com/julianstephens/stride/internal/config"
	"github.com/julianstephens/stride/internal/models"
)

type PolicyCmd struct {
	Show PolicyShowCmd `cmd:"" help:"Show the effective scoring policy." default:"1"`
	Init PolicyInitCmd `cmd:"" help:"Write the default policy file."`
}

type PolicyShowCmd struct{}

func (c *PolicyShowCmd) Run(ctx *cli.Context) error {
	data, err := yaml.Marshal(ctx.Policy)
	if err != nil {
		return fmt.Errorf("failed to encode policy: %w", err)
	}
	ctx.Printf("# %s\n", ctx.PolicyPath)
	ctx.Printf("%s", data)
	return nil
}

type PolicyInitCmd struct {
	Force bool `help:"Overwrite an existing policy file."`
}

func (c *PolicyInitCmd) Run(ctx *cli.Context) error {
	path, err := config.ExpandPath(ctx.PolicyPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !c.Force {
		return fmt.Errorf("policy file already exists at %s (use --force to overwrite)", path)
	}

	if err := config.WritePolicy(path, models.DefaultPolicy()); err != nil {
		return err
	}
	ctx.Printf("Wrote default policy to: %s\n", path)
	return nil
}
