package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vinayprograms/nexa/prompt"
	"github.com/vinayprograms/nexa/search"
	"github.com/vinayprograms/nexa/tools"
)

type askOptions struct {
	mode     string
	language string
	sources  []string
	noCache  bool
	stream   bool
}

func newAskCmd(opts *cliOptions) *cobra.Command {
	ao := &askOptions{}
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runAsk(ctx, opts, ao, strings.Join(args, " "), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&ao.mode, "mode", "", "quick, balanced or deep (default from config)")
	cmd.Flags().StringVar(&ao.language, "lang", "", "answer language code or name (default from config)")
	cmd.Flags().StringSliceVar(&ao.sources, "sources", nil, "tools to use: web_search, wikipedia, arxiv_search (default all)")
	cmd.Flags().BoolVar(&ao.noCache, "no-cache", false, "bypass the response cache")
	cmd.Flags().BoolVar(&ao.stream, "stream", true, "print the answer as it is generated")
	return cmd
}

func runAsk(ctx context.Context, opts *cliOptions, ao *askOptions, question string, out io.Writer) error {
	a, err := loadApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	engine, err := a.newEngine(ctx)
	if err != nil {
		return err
	}

	req := search.Request{
		Query:    question,
		Mode:     prompt.ParseMode(firstNonEmpty(ao.mode, a.cfg.Search.DefaultMode)),
		Language: prompt.ParseLanguage(firstNonEmpty(ao.language, a.cfg.Search.DefaultLanguage)),
		UseCache: !ao.noCache,
	}
	ids, rejected := tools.ParseToolIDs(ao.sources)
	for _, name := range rejected {
		fmt.Fprintf(out, "ignoring unknown source %q\n", name)
	}
	req.Sources = ids
	if len(ao.sources) > 0 && len(ids) == 0 {
		// Keep the rejected names so the engine reports INVALID_SOURCES.
		for _, name := range rejected {
			req.Sources = append(req.Sources, tools.ToolID(name))
		}
	}

	var searchOpts []search.SearchOption
	streamed := false
	if ao.stream {
		searchOpts = append(searchOpts, search.WithStream(func(token string) {
			streamed = true
			fmt.Fprint(out, token)
		}))
	}

	res := engine.Run(ctx, req, searchOpts...)
	if !res.Success {
		return exitError{code: 1, message: res.Answer}
	}
	if streamed {
		fmt.Fprintln(out)
	} else {
		fmt.Fprintln(out, res.Answer)
	}
	printResultFooter(out, res)
	return nil
}

func printResultFooter(out io.Writer, res *search.Result) {
	if len(res.Sources) > 0 {
		fmt.Fprintln(out, "\nSources:")
		for i, s := range res.Sources {
			fmt.Fprintf(out, "  %d. %s: %s\n", i+1, s.DisplayName, s.Query)
		}
	}
	if len(res.Related) > 0 {
		fmt.Fprintln(out, "\nRelated:")
		for _, q := range res.Related {
			fmt.Fprintf(out, "  - %s\n", q)
		}
	}
	meta := fmt.Sprintf("\n[%s | %s | %s", res.Model, res.Mode, res.Duration.Round(time.Millisecond))
	if res.Cached {
		meta += " | cached"
	}
	fmt.Fprintln(out, meta+"]")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
