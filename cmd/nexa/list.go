package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vinayprograms/nexa/credentials"
	"github.com/vinayprograms/nexa/llm"
	"github.com/vinayprograms/nexa/tools"
)

func newModelsCmd(opts *cliOptions) *cobra.Command {
	var probe bool
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List candidate models in selection order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runModels(ctx, opts, probe, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&probe, "probe", false, "probe candidates and report the one that would be used")
	return cmd
}

func runModels(ctx context.Context, opts *cliOptions, probe bool, out io.Writer) error {
	a, err := loadApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	tw := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tPROVIDER\tKEY")
	for _, model := range a.cfg.LLM.Models {
		provider := a.cfg.LLM.Provider
		if provider == "" {
			provider = llm.InferProviderFromModel(model)
		}
		key := "missing (" + credentials.EnvVar(provider) + ")"
		switch {
		case provider == "":
			provider, key = "unknown", "-"
		case a.creds.GetAPIKey(provider) != "":
			key = "ok"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", model, provider, key)
	}
	tw.Flush()

	if !probe {
		return nil
	}
	selector := llm.NewSelector(a.cfg.LLM.Models, llm.NewFactory(a.factoryConfig()),
		llm.WithSelectorLogger(a.logger.WithComponent("llm")))
	sel, err := selector.Select(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nselected: %s\n", sel.Model)
	return nil
}

func newToolsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the search tools",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := loadApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			reg := tools.NewDefaultRegistry(a.toolsConfig())
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION")
			for _, d := range reg.Descriptors() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", d.ID, d.DisplayName, d.Description)
			}
			return tw.Flush()
		},
	}
}
