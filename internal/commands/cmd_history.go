package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/evolve/internal/core/evolution"
	"github.com/colonyops/evolve/internal/core/styles"
	"github.com/colonyops/evolve/internal/data/db"
	"github.com/colonyops/evolve/internal/evolve"
	"github.com/colonyops/evolve/pkg/iojson"
	"github.com/colonyops/evolve/pkg/tmpl"
)

type HistoryCmd struct {
	flags *Flags
	app   *evolve.App

	// flags
	task       int
	status     string
	limit      int
	jsonOutput bool
	raw        bool
	force      bool
}

// NewHistoryCmd creates a new history command
func NewHistoryCmd(flags *Flags, app *evolve.App) *HistoryCmd {
	return &HistoryCmd{flags: flags, app: app}
}

// Register adds the history command to the application
func (cmd *HistoryCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "history",
		Usage:     "Inspect the attempt journal",
		UsageText: "evolve history [options] | evolve history show <id>",
		Description: `Lists journaled attempts newest first. Every generate/build/validate attempt is
recorded, along with the publish and give-up outcome of each task.

Use 'evolve history show <id>' to view one entry with its script. Ids may be
shortened to any unambiguous prefix. 'evolve history reset' empties the journal.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "task",
				Usage:       "only entries for this issue number",
				Destination: &cmd.task,
			},
			&cli.StringFlag{
				Name:        "status",
				Usage:       "only entries with this status (succeeded, failed, given_up, published)",
				Destination: &cmd.status,
			},
			&cli.IntFlag{
				Name:        "limit",
				Usage:       "maximum number of entries",
				Value:       20,
				Destination: &cmd.limit,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.runList,
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Show one journal entry",
				UsageText: "evolve history show <id> [--raw]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "raw",
						Usage:       "print markdown without terminal rendering",
						Destination: &cmd.raw,
					},
				},
				Action: cmd.runShow,
			},
			{
				Name:      "reset",
				Usage:     "Delete every journal entry",
				UsageText: "evolve history reset [--force]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "force",
						Aliases:     []string{"f"},
						Usage:       "skip the confirmation prompt",
						Destination: &cmd.force,
					},
				},
				Action: cmd.runReset,
			},
		},
	})

	return app
}

func (cmd *HistoryCmd) runList(ctx context.Context, c *cli.Command) error {
	journal, err := cmd.app.Journal()
	if err != nil {
		return err
	}

	entries, err := journal.List(ctx, db.ListFilter{
		Task:   cmd.task,
		Status: evolution.EntryStatus(cmd.status),
		Limit:  cmd.limit,
	})
	if err != nil {
		return err
	}

	out := c.Root().Writer

	if cmd.jsonOutput {
		for _, e := range entries {
			if err := iojson.WriteLine(out, e); err != nil {
				return fmt.Errorf("encode entry: %w", err)
			}
		}
		return nil
	}

	if len(entries) == 0 {
		_, _ = fmt.Fprintln(os.Stderr, "No journal entries found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTASK\tVERSION\tATTEMPT\tSTATUS\tSTARTED\tERROR")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t#%d\tv%d\t%d\t%s\t%s\t%s\n",
			shortID(e.ID),
			e.Task,
			e.Version,
			e.Attempt,
			statusText(e.Status),
			e.StartedAt.Local().Format(time.DateTime),
			truncate(firstLine(e.Error), 60),
		)
	}
	return w.Flush()
}

func (cmd *HistoryCmd) runReset(ctx context.Context, c *cli.Command) error {
	if !cmd.force {
		confirmed := false
		err := huh.NewConfirm().
			Title("Delete every journal entry?").
			Description(cmd.app.Config.JournalPath()).
			Affirmative("Delete").
			Negative("Cancel").
			Value(&confirmed).
			Run()
		if err != nil {
			return err
		}
		if !confirmed {
			_, _ = fmt.Fprintln(os.Stderr, styles.TextMutedStyle.Render("Reset cancelled"))
			return nil
		}
	}

	journal, err := cmd.app.Journal()
	if err != nil {
		return err
	}

	removed, err := journal.Reset(ctx)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(c.Root().Writer, styles.TextSuccessStyle.Render(fmt.Sprintf("✔ Removed %d journal entries", removed)))
	return nil
}

func (cmd *HistoryCmd) runShow(ctx context.Context, c *cli.Command) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("usage: evolve history show <id>")
	}

	journal, err := cmd.app.Journal()
	if err != nil {
		return err
	}

	entry, err := journal.Get(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("no journal entry matches %q", id)
	}
	if err != nil {
		return err
	}

	doc, err := RenderEntry(entry)
	if err != nil {
		return err
	}

	out := c.Root().Writer
	if cmd.raw || !term.IsTerminal(int(os.Stdout.Fd())) {
		_, err := fmt.Fprint(out, doc)
		return err
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStyles(styles.GlamourStyle()),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}

	rendered, err := renderer.Render(doc)
	if err != nil {
		return fmt.Errorf("render entry: %w", err)
	}
	_, err = fmt.Fprint(out, rendered)
	return err
}

var entryTemplate = tmpl.MustParse(strings.ReplaceAll(`# Task #{{ .Task }}: {{ .Title }}

| | |
|---|---|
| ID | {{ .ID }} |
| Version | v{{ .Version }} |
| Attempt | {{ .Attempt }} |
| Status | {{ .Status }} |
| Started | {{ .Started }} |
| Duration | {{ .Duration }} |
{{- if .Detail }}
| Detail | {{ .Detail }} |
{{- end }}
{{ if .Error }}
## Error

'''
{{ .Error }}
'''
{{ end }}
{{- if .Script }}
## Script

'''bash
{{ .Script }}
'''
{{ end -}}
`, "'''", "```"))

// RenderEntry formats a journal entry as markdown.
func RenderEntry(e evolution.JournalEntry) (string, error) {
	return tmpl.Render(entryTemplate, map[string]any{
		"ID":       e.ID,
		"Task":     e.Task,
		"Title":    e.Title,
		"Version":  e.Version,
		"Attempt":  e.Attempt,
		"Status":   string(e.Status),
		"Started":  e.StartedAt.Local().Format(time.RFC3339),
		"Duration": e.Duration.Round(time.Millisecond).String(),
		"Detail":   e.Detail,
		"Error":    strings.TrimSpace(e.Error),
		"Script":   strings.TrimSpace(e.Script),
	})
}

func statusText(s evolution.EntryStatus) string {
	switch s {
	case evolution.StatusSucceeded, evolution.StatusPublished:
		return styles.TextSuccessStyle.Render(string(s))
	case evolution.StatusFailed:
		return styles.TextWarningStyle.Render(string(s))
	case evolution.StatusGivenUp:
		return styles.TextErrorStyle.Render(string(s))
	default:
		return string(s)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
