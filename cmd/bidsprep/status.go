package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"bidsprep/internal/preflight"
	"bidsprep/internal/session"
	"bidsprep/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show environment checks and the last scan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			lines := renderSectionHeader("Environment", colorize)
			for _, res := range preflight.RunAll(cfg, "") {
				kind := statusOK
				if !res.Passed {
					kind = statusError
				}
				lines = append(lines, renderStatusLine(res.Name, kind, res.Detail, colorize))
			}
			lines = append(lines, renderStatusLine("Config", statusInfo, ctx.configPath, colorize))

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Last scan", colorize)...)
			lines = append(lines, lastScanLines(cmd.Context(), cfg.StatePath(), colorize)...)

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			return nil
		},
	}
}

func lastScanLines(ctx context.Context, statePath string, colorize bool) []string {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := store.OpenPath(statePath)
	if err != nil {
		return []string{renderStatusLine("State", statusError, err.Error(), colorize)}
	}
	defer st.Close()

	scan, err := st.LastScan(ctx)
	if err != nil {
		return []string{renderStatusLine("State", statusError, err.Error(), colorize)}
	}
	if scan == nil {
		return []string{renderStatusLine("Scan", statusInfo, "no scans recorded", colorize)}
	}
	lines := []string{
		renderStatusLine("Root", statusInfo, scan.Root, colorize),
		renderStatusLine("Started", statusInfo, scan.StartedAt.Local().Format(time.DateTime), colorize),
	}
	switch {
	case scan.ErrorMessage != "":
		lines = append(lines, renderStatusLine("Outcome", statusError, scan.ErrorMessage, colorize))
	case scan.FinishedAt == nil:
		lines = append(lines, renderStatusLine("Outcome", statusWarn, "did not finish", colorize))
	default:
		kind := statusOK
		if scan.GroupsReady < scan.GroupsLoaded {
			kind = statusWarn
		}
		msg := fmt.Sprintf("%d folder(s) loaded, %d ready", scan.GroupsLoaded, scan.GroupsReady)
		lines = append(lines, renderStatusLine("Outcome", kind, msg, colorize))
	}
	return lines
}

type recordingSummary struct {
	Path      string   `json:"path"`
	Task      string   `json:"task"`
	Run       string   `json:"run"`
	Junk      bool     `json:"junk"`
	EmptyRoom bool     `json:"empty_room"`
	Markers   []string `json:"markers"`
	Verdict   string   `json:"verdict"`
	Reasons   []string `json:"reasons,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

type folderSummary struct {
	groupSummary
	Project       string             `json:"project"`
	Birthdate     string             `json:"birthdate"`
	Sex           string             `json:"sex"`
	DewarPosition string             `json:"dewar_position"`
	Recordings    []recordingSummary `json:"recordings"`
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "show <dir>",
		Short: "Show the recordings and subject metadata of one folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs, err := absPaths(args)
			if err != nil {
				return err
			}
			return ctx.withSession(cmd, func(c context.Context, s *session.Session) error {
				if res := s.Load(c, dirs[0]); res.Err != nil {
					return fmt.Errorf("load %s: %w", dirs[0], res.Err)
				}
				view, ok := s.Group(dirs[0])
				if !ok {
					return fmt.Errorf("%w: %s", session.ErrUnknownGroup, dirs[0])
				}
				summary := summarizeFolder(view)
				if jsonOut {
					return writeJSON(cmd, summary)
				}
				printFolder(cmd, summary)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	return cmd
}

func summarizeFolder(view session.GroupView) folderSummary {
	summary := folderSummary{
		groupSummary:  summarizeGroup(view),
		Project:       view.Meta.Project,
		Birthdate:     view.Meta.Birthdate.String(),
		Sex:           view.Meta.Sex.String(),
		DewarPosition: view.Meta.DewarPosition,
	}
	for _, rec := range view.Recordings {
		rs := recordingSummary{
			Path:      rec.Path,
			Task:      rec.Task,
			Run:       rec.Run,
			Junk:      rec.Junk,
			EmptyRoom: rec.EmptyRoom,
			Markers:   rec.Markers,
			Verdict:   rec.Validity.Verdict.String(),
		}
		for _, r := range rec.Validity.Reasons {
			rs.Reasons = append(rs.Reasons, r.String())
		}
		for _, w := range rec.Validity.Warnings {
			rs.Warnings = append(rs.Warnings, w.String())
		}
		summary.Recordings = append(summary.Recordings, rs)
	}
	return summary
}

func printFolder(cmd *cobra.Command, summary folderSummary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Folder:   %s\n", summary.Path)
	fmt.Fprintf(out, "Subject:  %s (project %s, born %s, sex %s, dewar %s)\n",
		summary.Subject, summary.Project, summary.Birthdate, summary.Sex, summary.DewarPosition)
	fmt.Fprintf(out, "Ready:    %s\n", yesNo(summary.Ready))
	if notes := groupNotes(summary.groupSummary); notes != "" {
		fmt.Fprintf(out, "Notes:    %s\n", notes)
	}
	if len(summary.Recordings) == 0 {
		return
	}
	headers := []string{"Recording", "Task", "Run", "Markers", "Status", "Problems"}
	rows := make([][]string, 0, len(summary.Recordings))
	for _, rec := range summary.Recordings {
		status := rec.Verdict
		switch {
		case rec.Junk:
			status = "ignored"
		case rec.EmptyRoom:
			status += " (empty room)"
		}
		problems := append(append([]string{}, rec.Reasons...), rec.Warnings...)
		rows = append(rows, []string{
			baseName(rec.Path),
			rec.Task,
			rec.Run,
			joinBaseNames(rec.Markers),
			status,
			strings.Join(problems, ", "),
		})
	}
	fmt.Fprintln(out, renderTable(headers, rows, nil))
}
