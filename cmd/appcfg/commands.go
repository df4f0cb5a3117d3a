package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/soochol/appcfg/internal/api"
	"github.com/soochol/appcfg/internal/appcfg"
	"github.com/soochol/appcfg/internal/dag"
	"github.com/soochol/appcfg/internal/document"
	"github.com/soochol/appcfg/internal/repository"
	"github.com/soochol/appcfg/internal/services"
	"github.com/soochol/appcfg/internal/store"
	cli "github.com/urfave/cli/v3"
)

var stdout io.Writer = os.Stdout

// openDocument loads the configured document into a fresh store.
func openDocument(cmd *cli.Command) (*services.DocumentService, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	docs := services.NewDocumentService(store.New(nil), repository.NewMemoryRevisionRepository(), cfg.Document.Path, cfg.Document.SchemaCheck)
	if err := docs.Open(); err != nil {
		return nil, err
	}
	return docs, nil
}

// edit applies fn to the document and writes it back.
func edit(ctx context.Context, cmd *cli.Command, reason string, fn document.Mutator) error {
	docs, err := openDocument(cmd)
	if err != nil {
		return err
	}
	if err := docs.Update(reason, fn); err != nil {
		return err
	}
	if _, err := docs.Save(ctx); err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			printProblems(verr.Problems)
		}
		return err
	}
	fmt.Fprintf(stdout, "%s: %s\n", docs.Path(), reason)
	return nil
}

func requireArgs(cmd *cli.Command, names ...string) ([]string, error) {
	args := cmd.Args().Slice()
	if len(args) != len(names) {
		return nil, fmt.Errorf("usage: %s %s", cmd.FullName(), strings.Join(names, " "))
	}
	return args, nil
}

func loadTyped(cmd *cli.Command) (*appcfg.Config, error) {
	docs, err := openDocument(cmd)
	if err != nil {
		return nil, err
	}
	return appcfg.FromDocument(docs.Store().Document())
}

func newValidateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check the document against the schema and its workflow references",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			docs, err := openDocument(cmd)
			if err != nil {
				return err
			}
			problems, err := docs.Validate()
			if err != nil {
				return err
			}
			if len(problems) == 0 {
				fmt.Fprintf(stdout, "%s: valid\n", docs.Path())
				return nil
			}
			printProblems(problems)
			return cli.Exit(fmt.Sprintf("%s: %d problem(s)", docs.Path(), len(problems)), 1)
		},
	}
}

func printProblems[P fmt.Stringer](problems []P) {
	for _, p := range problems {
		fmt.Fprintln(stdout, "  "+p.String())
	}
}

func newChainCommand() *cli.Command {
	return &cli.Command{
		Name:      "chain",
		Usage:     "Print the workflows run by a workflow, in order",
		ArgsUsage: "<workflow>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args, err := requireArgs(cmd, "<workflow>")
			if err != nil {
				return err
			}
			cfg, err := loadTyped(cmd)
			if err != nil {
				return err
			}
			id := args[0]
			if !cfg.Workflows.Has(id) {
				return appcfg.WorkflowNotFound(id)
			}
			for _, wf := range dag.WorkflowChain(&cfg.Workflows, id) {
				marker := " "
				if wf == id {
					marker = "*"
				}
				fmt.Fprintf(stdout, "%s %s\n", marker, wf)
			}
			return nil
		},
	}
}

func newUsedByCommand() *cli.Command {
	return &cli.Command{
		Name:      "used-by",
		Usage:     "List the workflows that chain a workflow",
		ArgsUsage: "<workflow>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args, err := requireArgs(cmd, "<workflow>")
			if err != nil {
				return err
			}
			cfg, err := loadTyped(cmd)
			if err != nil {
				return err
			}
			id := args[0]
			if !cfg.Workflows.Has(id) {
				return appcfg.WorkflowNotFound(id)
			}
			usedBy := dag.UsedBy(&cfg.Workflows, id)
			fmt.Fprintln(stdout, dag.UsedByText(usedBy))
			for _, wf := range usedBy {
				fmt.Fprintln(stdout, "  "+wf)
			}
			if n := dag.CountInPipelines(id, &cfg.Pipelines, &cfg.Stages); n > 0 {
				fmt.Fprintf(stdout, "Runs in %d pipeline(s)\n", n)
			}
			return nil
		},
	}
}

func newDeleteWorkflowCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete-workflow",
		Usage:     "Delete workflows and every reference to them",
		ArgsUsage: "<workflow>...",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ids := cmd.Args().Slice()
			if len(ids) == 0 {
				return fmt.Errorf("usage: %s <workflow>...", cmd.FullName())
			}
			return edit(ctx, cmd, "delete "+strings.Join(ids, ", "), document.DeleteWorkflows(ids...))
		},
	}
}

func newRenameWorkflowCommand() *cli.Command {
	return &cli.Command{
		Name:      "rename-workflow",
		Usage:     "Rename a workflow and rewrite its references",
		ArgsUsage: "<old> <new>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args, err := requireArgs(cmd, "<old>", "<new>")
			if err != nil {
				return err
			}
			return edit(ctx, cmd, fmt.Sprintf("rename %s to %s", args[0], args[1]), document.RenameWorkflow(args[0], args[1]))
		},
	}
}

func scopeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "scope",
			Usage: "project, workflow or container",
			Value: string(appcfg.ScopeProject),
		},
		&cli.StringFlag{
			Name:  "id",
			Usage: "workflow or container id",
		},
	}
}

func scopeFromFlags(cmd *cli.Command) (appcfg.Scope, string, error) {
	scope, err := appcfg.ParseScope(cmd.String("scope"))
	return scope, cmd.String("id"), err
}

func newEnvsCommand() *cli.Command {
	return &cli.Command{
		Name:  "envs",
		Usage: "List and edit env vars",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List env vars; without --scope lists every env var",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "scope", Usage: "project, workflow or container"},
					&cli.StringFlag{Name: "id", Usage: "workflow or container id, or * for all of them"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					docs, err := openDocument(cmd)
					if err != nil {
						return err
					}
					var scope *appcfg.Scope
					if cmd.String("scope") != "" {
						sc, _, err := scopeFromFlags(cmd)
						if err != nil {
							return err
						}
						scope = &sc
					}
					envs, err := document.EnvVars(docs.Store().Document(), scope, cmd.String("id"))
					if err != nil {
						return err
					}
					for _, env := range envs {
						fmt.Fprintf(stdout, "%s=%s\t(%s)\n", env.Key, env.Value, env.Source)
					}
					return nil
				},
			},
			{
				Name:      "add",
				Usage:     "Append an env var",
				ArgsUsage: "<key> <value>",
				Flags: append(scopeFlags(), &cli.BoolFlag{
					Name:  "no-expand",
					Usage: "set opts.is_expand: false",
				}),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					args, err := requireArgs(cmd, "<key>", "<value>")
					if err != nil {
						return err
					}
					scope, id, err := scopeFromFlags(cmd)
					if err != nil {
						return err
					}
					env := appcfg.EnvVar{Key: args[0], Value: args[1]}
					if cmd.Bool("no-expand") {
						env.IsExpand = appcfg.Bool(false)
					}
					return edit(ctx, cmd, "add env var "+env.Key, document.AppendEnvVar(env, scope, id))
				},
			},
			{
				Name:      "remove",
				Usage:     "Remove the env var at an index",
				ArgsUsage: "<index>",
				Flags:     scopeFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					args, err := requireArgs(cmd, "<index>")
					if err != nil {
						return err
					}
					index, err := strconv.Atoi(args[0])
					if err != nil {
						return fmt.Errorf("invalid index %q", args[0])
					}
					scope, id, err := scopeFromFlags(cmd)
					if err != nil {
						return err
					}
					return edit(ctx, cmd, "remove env var "+args[0], document.RemoveEnvVar(index, scope, id))
				},
			},
		},
	}
}

func newTokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Issue a bearer token for the mutating API routes",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "subject", Value: "editor", Usage: "token subject"},
			&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour, Usage: "token lifetime"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret is not set")
			}
			token, err := api.NewAuthenticator(cfg.Auth.JWTSecret).Issue(cmd.String("subject"), cmd.Duration("ttl"))
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, token)
			return nil
		},
	}
}
