package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/urfave/cli/v3"

	"github.com/starford/didact/internal"
	"github.com/starford/didact/internal/dispatch"
	"github.com/starford/didact/internal/fetcher"
	"github.com/starford/didact/internal/markup"
	"github.com/starford/didact/internal/tutorial"
)

var categoryFlag = &cli.StringFlag{
	Name:  "category",
	Usage: "Tutorial category",
}

var plainFlag = &cli.BoolFlag{
	Name:  "plain",
	Usage: "Print raw Markdown instead of styled terminal output",
}

// openEngine loads config and wires a one-shot engine.
func openEngine(ctx context.Context, cmd *cli.Command, opts ...internal.Option) (*internal.Engine, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return internal.Open(ctx, append([]internal.Option{internal.WithConfig(cfg)}, opts...)...)
}

// absRef makes local references absolute so registrations survive a change
// of working directory.
func absRef(ref string) string {
	if fetcher.IsRemote(ref) {
		return ref
	}
	p, err := fetcher.LocalPath(ref)
	if err != nil {
		return ref
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return ref
}

// resolveTarget treats arg as a file or URL, or else as a registered name.
func resolveTarget(ctx context.Context, eng *internal.Engine, arg, category string) (string, error) {
	if fetcher.IsRemote(arg) {
		return arg, nil
	}
	if _, err := os.Stat(arg); err == nil {
		return absRef(arg), nil
	}
	uri, ok, err := eng.Service.Registry().ResolveURI(ctx, arg, category)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%q is neither a file nor a tutorial registered in category %q", arg, category)
	}
	return uri, nil
}

func renderMarkdown(w io.Writer, md string, plain bool) error {
	if plain {
		_, err := io.WriteString(w, md)
		return err
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return err
	}
	out, err := r.Render(md)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

func cell(s string) string { return strings.ReplaceAll(s, "|", `\|`) }

func registerCommand() *cli.Command {
	return &cli.Command{
		Name:      "register",
		Usage:     "Register a tutorial under a name and category",
		ArgsUsage: "<name> <file-or-url>",
		Flags:     []cli.Flag{categoryFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 2 {
				return fmt.Errorf("register: expected <name> <file-or-url>")
			}
			eng, err := openEngine(ctx, cmd)
			if err != nil {
				return err
			}
			defer eng.Close()

			name, uri := cmd.Args().Get(0), absRef(cmd.Args().Get(1))
			if err := eng.Service.Register(ctx, name, uri, cmd.String("category")); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "registered %s -> %s\n", name, uri)
			return nil
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List registered tutorials by category with time estimates",
		Flags: []cli.Flag{plainFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			eng, err := openEngine(ctx, cmd)
			if err != nil {
				return err
			}
			defer eng.Close()

			roots, err := eng.Service.Tree().Expand(ctx)
			if err != nil {
				return err
			}
			if len(roots) == 0 {
				fmt.Fprintln(os.Stdout, "no tutorials registered")
				return nil
			}
			var b strings.Builder
			b.WriteString("| Category | Tutorial | Time | Source |\n|---|---|---|---|\n")
			for _, cat := range roots {
				for _, t := range cat.Children {
					fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", cell(cat.Label), cell(t.Label), t.TimeLabel, cell(t.URI))
				}
			}
			return renderMarkdown(os.Stdout, b.String(), cmd.Bool("plain"))
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Render a tutorial in the terminal with its outline and action links",
		ArgsUsage: "<file-url-or-name>",
		Flags:     []cli.Flag{categoryFlag, plainFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("show: expected one tutorial")
			}
			eng, err := openEngine(ctx, cmd)
			if err != nil {
				return err
			}
			defer eng.Close()

			uri, err := resolveTarget(ctx, eng, cmd.Args().First(), cmd.String("category"))
			if err != nil {
				return err
			}
			raw, err := eng.Service.Source(ctx, uri)
			if err != nil {
				return err
			}
			doc, err := eng.Service.Parse(uri, raw)
			if err != nil {
				return err
			}
			return renderMarkdown(os.Stdout, showMarkdown(doc, raw), cmd.Bool("plain"))
		},
	}
}

// showMarkdown lays out a tutorial for the terminal: the Markdown body as
// written, or the outline for AsciiDoc, followed by the numbered actions.
func showMarkdown(doc *tutorial.Document, raw []byte) string {
	var b strings.Builder
	if doc.Format == markup.Markdown {
		_, body := markup.SplitFrontmatter(raw)
		b.Write(body)
	} else {
		fmt.Fprintf(&b, "# %s\n\n", doc.Title)
		for _, h := range doc.Headings {
			fmt.Fprintf(&b, "%s %s %s\n\n", strings.Repeat("#", max(h.Level, 2)), h.Title, h.Description())
		}
	}
	for _, w := range doc.Warnings {
		fmt.Fprintf(&b, "\n> warning: %s\n", w)
	}
	if len(doc.Actions) > 0 {
		b.WriteString("\n---\n\n## Actions\n\n| # | Kind | Capability | Link |\n|---|---|---|---|\n")
		for _, a := range doc.Actions {
			fmt.Fprintf(&b, "| %d | %s | %s | %s |\n", a.Index, a.Kind, a.Capability, cell(a.LinkText))
		}
	}
	return b.String()
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run the action links of a tutorial in order",
		ArgsUsage: "<file-url-or-name> [index...]",
		Flags: []cli.Flag{
			categoryFlag,
			&cli.BoolFlag{Name: "validate", Usage: "Probe every requirement before running"},
			&cli.DurationFlag{Name: "settle", Usage: "How long to let terminals run before printing their output", Value: time.Second},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() < 1 {
				return fmt.Errorf("run: expected a tutorial")
			}
			var indexes []int
			for _, s := range cmd.Args().Tail() {
				i, err := strconv.Atoi(s)
				if err != nil {
					return fmt.Errorf("run: bad index %q", s)
				}
				indexes = append(indexes, i)
			}

			eng, err := openEngine(ctx, cmd, internal.WithReporter(dispatch.ReporterFunc(printOutcome)))
			if err != nil {
				return err
			}
			defer eng.Close()

			uri, err := resolveTarget(ctx, eng, cmd.Args().First(), cmd.String("category"))
			if err != nil {
				return err
			}
			if _, err := eng.Service.Open(ctx, uri); err != nil {
				return err
			}
			if cmd.Bool("validate") {
				if _, err := eng.Service.ValidateAll(ctx, uri); err != nil {
					return err
				}
			}
			outcomes, err := eng.Service.Run(ctx, uri, indexes)
			if err != nil {
				return err
			}

			if names := eng.Terminals.Names(); len(names) > 0 {
				time.Sleep(cmd.Duration("settle"))
				for _, name := range names {
					out, err := eng.Terminals.Output(name)
					if err != nil {
						continue
					}
					fmt.Fprintf(os.Stdout, "\n--- terminal %s ---\n%s", name, out)
				}
			}

			failed := 0
			for _, o := range outcomes {
				if o.State == dispatch.Failed {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d actions failed", failed, len(outcomes))
			}
			return nil
		},
	}
}

func printOutcome(_ context.Context, o dispatch.Outcome) {
	mark := "ok"
	switch {
	case o.State == dispatch.Failed:
		mark = "FAILED"
	case o.Requirement != nil && !o.Requirement.Satisfied:
		mark = "unsatisfied"
	}
	msg := o.Notice
	if msg == "" {
		msg = o.Error
	}
	fmt.Fprintf(os.Stdout, "[%s] #%d %s %s\n", mark, o.Index, o.Capability, msg)
}
