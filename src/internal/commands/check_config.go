package commands

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/maksimkurb/keen-connectivity/src/internal/config"
	"github.com/maksimkurb/keen-connectivity/src/internal/log"
)

func CreateCheckConfigCommand() *CheckConfigCommand {
	return &CheckConfigCommand{
		fs:  flag.NewFlagSet("check-config", flag.ExitOnError),
		out: os.Stdout,
	}
}

// CheckConfigCommand validates the configuration file and prints every error.
type CheckConfigCommand struct {
	fs  *flag.FlagSet
	ctx *AppContext
	out io.Writer
}

func (c *CheckConfigCommand) Name() string {
	return c.fs.Name()
}

func (c *CheckConfigCommand) Init(args []string, ctx *AppContext) error {
	c.ctx = ctx
	log.SetForceStdErr(true)
	return c.fs.Parse(args)
}

func (c *CheckConfigCommand) Run() error {
	cfg, err := config.LoadConfig(c.ctx.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %v", err)
	}

	err = cfg.ValidateConfig()
	if err == nil {
		fmt.Fprintf(c.out, "Configuration %s is valid\n", cfg.GetConfigFilePath())
		return nil
	}

	var validationErrors config.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}
	for _, ve := range validationErrors {
		fmt.Fprintf(c.out, "  %s: %s\n", ve.FieldPath, ve.Message)
	}
	return fmt.Errorf("configuration has %d errors", len(validationErrors))
}
