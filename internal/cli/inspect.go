package cli

import (
	"fmt"
	"io"

	"github.com/gosuri/uitable"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/gonkalabs/codeblur/internal/classify"
	"github.com/gonkalabs/codeblur/internal/fingerprint"
	"github.com/gonkalabs/codeblur/internal/session"
)

func (a *app) percentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "percent [file]",
		Short: "Print the share of placeholders in text, 0 to 100",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			// The percentage depends only on the text; the session is loaded
			// so that a locked state is reported consistently.
			return a.view(func(s *session.Session) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), s.Percent(text))
				return err
			})
		},
	}
}

func (a *app) scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan [file]",
		Short: "List sensitive values found in text without changing anything",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			spans, err := classify.Scan(text)
			if err != nil {
				return err
			}
			spans = lo.Filter(spans, func(sp classify.Span, _ int) bool {
				return sp.Kind != classify.KindIdentifier
			})
			if len(spans) > 0 {
				table := uitable.New()
				table.AddRow(headerfmt("SPAN"), headerfmt("DETECTOR"), headerfmt("CATEGORY"), headerfmt("TEXT"))
				for _, sp := range spans {
					table.AddRow(fmt.Sprintf("%d-%d", sp.Start, sp.End), sp.Detector, sp.Category, fmt.Sprintf("%q", sp.Text))
				}
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), table); err != nil {
					return err
				}
			}
			dimColor.Fprintf(cmd.ErrOrStderr(), "%d findings\n", len(spans))
			return nil
		},
	}
}

func (a *app) sanitizeCmd() *cobra.Command {
	var (
		opts   = fingerprint.DefaultOptions()
		report bool
	)
	cmd := &cobra.Command{
		Use:   "sanitize [file]",
		Short: "Remove invisible characters, exotic spaces and homoglyphs",
		Long: `Normalize text so it carries no hidden fingerprint and print the result.

With --report the findings are listed on stderr, one per character, with
the byte offset in the input.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			if report {
				printReport(cmd.ErrOrStderr(), fingerprint.Analyze(text))
			}
			out, stats := fingerprint.Sanitize(text, opts)
			if stats.Total() > 0 {
				warnColor.Fprintf(cmd.ErrOrStderr(),
					"normalized %d, invisible %d, spaces %d, homoglyphs %d\n",
					stats.Normalized, stats.Invisible, stats.Spaces, stats.Homoglyphs)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), out)
			return err
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.NFKC, "nfkc", opts.NFKC, "apply NFKC normalization")
	f.BoolVar(&opts.Invisible, "invisible", opts.Invisible, "remove invisible characters")
	f.BoolVar(&opts.Spaces, "spaces", opts.Spaces, "replace special spaces")
	f.BoolVar(&opts.Homoglyphs, "homoglyphs", opts.Homoglyphs, "replace homoglyphs")
	f.BoolVar(&report, "report", false, "list every finding on stderr")
	return cmd
}

func printReport(w io.Writer, rep fingerprint.Report) {
	if len(rep.Findings) > 0 {
		table := uitable.New()
		table.AddRow(headerfmt("OFFSET"), headerfmt("CODE"), headerfmt("KIND"), headerfmt("REPLACEMENT"))
		for _, f := range rep.Findings {
			table.AddRow(f.Offset, f.Code, f.Kind, fmt.Sprintf("%q", f.Replacement))
		}
		fmt.Fprintln(w, table)
	}
	dimColor.Fprintf(w, "%d fingerprint characters\n", rep.Total)
}
