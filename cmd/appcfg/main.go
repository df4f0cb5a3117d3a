package main

import (
	"context"
	"fmt"
	"os"

	"github.com/soochol/appcfg/internal/config"
	"github.com/soochol/appcfg/internal/logging"
	cli "github.com/urfave/cli/v3"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  "appcfg",
		Usage:                 "Edit and serve a CI/CD app config document",
		Version:               "v0.1.0",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the service config file (default config.yaml)",
				Sources: cli.EnvVars(config.EnvPrefix + "CONFIG"),
			},
			&cli.StringFlag{
				Name:    "document",
				Aliases: []string{"d"},
				Usage:   "Path to the app config document, overrides document.path",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error), overrides log.level",
			},
		},
		Commands: []*cli.Command{
			newServeCommand(),
			newValidateCommand(),
			newChainCommand(),
			newUsedByCommand(),
			newDeleteWorkflowCommand(),
			newRenameWorkflowCommand(),
			newEnvsCommand(),
			newTokenCommand(),
		},
	}
}

// loadConfig reads the service config and applies the global flag overrides.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := cmd.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}
	if doc := cmd.String("document"); doc != "" {
		cfg.Document.Path = doc
	}
	if level := cmd.String("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	logging.Setup(cfg.Log.Level)
	return cfg, nil
}
