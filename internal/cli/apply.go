package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/gonkalabs/codeblur/internal/fingerprint"
	"github.com/gonkalabs/codeblur/internal/pipeline"
	"github.com/gonkalabs/codeblur/internal/reveal"
	"github.com/gonkalabs/codeblur/internal/session"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	dimColor  = color.New(color.FgHiBlack)
	headerfmt = color.New(color.FgGreen, color.Underline).SprintFunc()
)

func (a *app) applyCmd() *cobra.Command {
	var (
		level       string
		stringsOnly bool
		paste       bool
		sanitize    bool
	)
	cmd := &cobra.Command{
		Use:   "apply [file]",
		Short: "Obfuscate text with the next level",
		Long: `Obfuscate a file, or stdin, and print the result.

Without --level the next level in the BLUR, ANON, NUKE cycle is applied.

Example:
  codeblur apply main.go > main.blur.go
  codeblur apply --level nuke < snippet.js
  codeblur apply --paste new_code.go         # reuse existing mappings only`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if lo.Count([]bool{level != "", stringsOnly, paste}, true) > 1 {
				return fmt.Errorf("--level, --strings-only and --paste are mutually exclusive")
			}
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			if sanitize {
				var stats fingerprint.Stats
				text, stats = fingerprint.Sanitize(text, fingerprint.DefaultOptions())
				if stats.Total() > 0 {
					warnColor.Fprintf(cmd.ErrOrStderr(), "removed %d fingerprint characters\n", stats.Total())
				}
			}

			var out, label string
			err = a.mutate(text, func(s *session.Session) error {
				var err error
				switch {
				case stringsOnly:
					out, label = s.StringsOnly(text), "STRINGS"
				case paste:
					out, err = s.Paste(text)
					label = "PASTE"
				case level != "":
					out, err = s.Apply(level, text)
					label = strings.ToUpper(level)
				default:
					out, label, err = s.ApplyNext(text)
				}
				if err == nil {
					report(cmd.ErrOrStderr(), s, label, out)
				}
				return err
			})
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().StringVarP(&level, "level", "l", "", "level to apply ("+strings.Join(pipeline.Names(), ", ")+")")
	cmd.Flags().BoolVar(&stringsOnly, "strings-only", false, "replace string literal contents only")
	cmd.Flags().BoolVar(&paste, "paste", false, "apply existing mappings without creating new ones")
	cmd.Flags().BoolVar(&sanitize, "sanitize", false, "strip fingerprint characters first")
	return cmd
}

func (a *app) revealCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "reveal [file]",
		Short: "Restore original values",
		Long: `Replace placeholders with the values they stand for and print the result.

A single pass restores what the text directly contains. With --all, passes
repeat until no placeholder is left, so text that went through several
levels is restored completely.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			var out string
			err = a.mutate(text, func(s *session.Session) error {
				if !all {
					var err error
					out, err = s.Reveal(text)
					return err
				}
				res, err := s.RevealAll(text)
				if err != nil {
					return err
				}
				out = res.Text
				if res.Partial {
					warnColor.Fprintf(cmd.ErrOrStderr(), "partial reveal after %d passes, %d%% left: %s\n",
						res.Passes, res.Percent, strings.Join(res.Residual, ", "))
				} else {
					dimColor.Fprintf(cmd.ErrOrStderr(), "revealed in %d %s\n", res.Passes, lo.Ternary(res.Passes == 1, "pass", "passes"))
				}
				return nil
			})
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, fmt.Sprintf("repeat passes until nothing is left (at most %d)", reveal.MaxPasses))
	return cmd
}

func (a *app) pinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pin <word> [file]",
		Short: "Obfuscate every occurrence of one identifier",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			word := args[0]
			text, err := readInput(cmd, args[1:])
			if err != nil {
				return err
			}
			var out string
			err = a.mutate(text, func(s *session.Session) error {
				var err error
				out, err = s.Pin(text, word)
				if err == nil {
					tok, _ := s.Registry().Lookup(word)
					dimColor.Fprintf(cmd.ErrOrStderr(), "%s -> %s\n", word, tok)
				}
				return err
			})
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), out)
			return err
		},
	}
}

// report prints the one-line summary of a level run.
func report(w io.Writer, s *session.Session, label, out string) {
	okColor.Fprintf(w, "%s", label)
	dimColor.Fprintf(w, " %d%% obfuscated, %d mappings, next %s\n", s.Percent(out), s.Registry().Len(), s.NextLevel())
}
