package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gosuri/uitable"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/gonkalabs/codeblur/internal/registry"
	"github.com/gonkalabs/codeblur/internal/session"
)

func (a *app) undoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Revert the last operation and print the text it received",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := a.undo()
			if isNothingToUndo(err) {
				warnColor.Fprintln(cmd.ErrOrStderr(), "nothing to undo")
				return nil
			}
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), text)
			return err
		},
	}
}

func (a *app) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget all mappings",
		Long: `Forget all mappings and restart the level cycle at BLUR.

Text obfuscated before clearing can no longer be revealed, unless the clear
is undone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var n int
			err := a.mutate("", func(s *session.Session) error {
				n = s.Registry().Len()
				s.Clear()
				return nil
			})
			if err != nil {
				return err
			}
			okColor.Fprintf(cmd.ErrOrStderr(), "cleared %d mappings\n", n)
			return nil
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.view(func(s *session.Session) error {
				entries := s.Registry().Entries()
				byPrefix := lo.GroupBy(entries, func(e registry.Entry) string {
					return strings.TrimRight(e.Placeholder, "0123456789")
				})
				prefixes := lo.Keys(byPrefix)
				slices.Sort(prefixes)

				saved := "never"
				if fi, err := os.Stat(a.cfg.StatePath); err == nil {
					saved = fmt.Sprintf("%s (%s)", humanize.Time(fi.ModTime()), humanize.Bytes(uint64(fi.Size())))
				}

				table := uitable.New()
				table.AddRow("state:", a.cfg.StatePath)
				table.AddRow("saved:", saved)
				table.AddRow("style:", s.Style())
				table.AddRow("next level:", s.NextLevel())
				table.AddRow("mappings:", len(entries))
				for _, p := range prefixes {
					table.AddRow("  "+p, len(byPrefix[p]))
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), table)
				return err
			})
		},
	}
}

func (a *app) mappingsCmd() *cobra.Command {
	var (
		asJSON bool
		grep   string
	)
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "List placeholder mappings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.view(func(s *session.Session) error {
				entries := lo.Filter(s.Registry().Entries(), func(e registry.Entry, _ int) bool {
					return grep == "" || strings.Contains(e.Original, grep) || strings.Contains(e.Placeholder, grep)
				})
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(entries)
				}
				if len(entries) == 0 {
					return nil
				}
				table := uitable.New()
				table.AddRow(headerfmt("PLACEHOLDER"), headerfmt("ORIGINAL"))
				for _, e := range entries {
					table.AddRow(e.Placeholder, quoteIfNeeded(e.Original))
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), table)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	cmd.Flags().StringVar(&grep, "grep", "", "only mappings whose value or placeholder contains this text")
	return cmd
}

// quoteIfNeeded quotes values that would break the two-column layout.
func quoteIfNeeded(s string) string {
	if strings.ContainsAny(s, "\t\n\r") || s != strings.TrimSpace(s) {
		return fmt.Sprintf("%q", s)
	}
	return s
}
