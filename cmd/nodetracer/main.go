// Command nodetracer inspects persisted trace files.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kaptinlin/jsonrepair"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	_ "github.com/joho/godotenv/autoload"

	"github.com/kallemickelborg/nodetracer"
	"github.com/kallemickelborg/nodetracer/render"
)

type cliDefaults struct {
	Verbosity string `env:"NODETRACER_VERBOSITY,default=standard"`
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "nodetracer",
		Short:         "Inspect agent execution traces",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(inspectCmd())
	return root
}

func inspectCmd() *cobra.Command {
	var defaults cliDefaults
	if err := envconfig.Process(context.Background(), &defaults); err != nil {
		defaults.Verbosity = string(render.Standard)
	}

	var (
		verbosity string
		asJSON    bool
		output    string
		repair    bool
	)
	cmd := &cobra.Command{
		Use:   "inspect <trace-file>",
		Short: "Render a persisted trace as a tree or JSON summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), cmd.OutOrStdout(), args[0], verbosity, asJSON, output, repair)
		},
	}
	cmd.Flags().StringVar(&verbosity, "verbosity", defaults.Verbosity, "console render verbosity: minimal, standard, or full")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit a machine-readable summary instead of text output")
	cmd.Flags().StringVar(&output, "output", "", "optional output file path for --json summary")
	cmd.Flags().BoolVar(&repair, "repair", false, "attempt to repair a damaged JSON document before parsing")
	return cmd
}

func runInspect(ctx context.Context, stdout io.Writer, path, verbosity string, asJSON bool, output string, repair bool) error {
	if output != "" && !asJSON {
		return errors.New("--output is only supported with --json")
	}
	v, err := render.ParseVerbosity(verbosity)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %q: %w", path, err)
	}

	graph, err := nodetracer.UnmarshalGraph(ctx, data)
	if err != nil && repair {
		repaired, repairErr := jsonrepair.JSONRepair(string(data))
		if repairErr != nil {
			return fmt.Errorf("loading %q (repair also failed: %v): %w", path, repairErr, err)
		}
		graph, err = nodetracer.UnmarshalGraph(ctx, []byte(repaired))
	}
	if err != nil {
		return fmt.Errorf("loading %q: %w", path, err)
	}

	summary := render.Summarize(graph)
	if asJSON {
		if output == "" {
			return summary.WriteJSON(stdout)
		}
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %q: %w", output, err)
		}
		defer f.Close()
		return summary.WriteJSON(f)
	}

	if err := summary.WriteTables(stdout); err != nil {
		return err
	}
	fmt.Fprintln(stdout)
	return render.Tree(stdout, graph, render.Options{Verbosity: v})
}
