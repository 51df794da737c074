package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"bidsprep/internal/filekind"
	"bidsprep/internal/notifications"
	"bidsprep/internal/preflight"
	"bidsprep/internal/session"
)

type groupSummary struct {
	Path    string         `json:"path"`
	Subject string         `json:"subject"`
	Ready   bool           `json:"ready"`
	Missing []string       `json:"missing,omitempty"`
	Counts  map[string]int `json:"counts"`
	Invalid []string       `json:"invalid,omitempty"`
	Error   string         `json:"error,omitempty"`
}

type scanSummary struct {
	Root   string         `json:"root"`
	ScanID int64          `json:"scan_id"`
	Loaded int            `json:"loaded"`
	Ready  int            `json:"ready"`
	Groups []groupSummary `json:"groups"`
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "Discover and validate every acquisition folder under a data root",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			root := cfg.Paths.DataDir
			if len(args) == 1 {
				resolved, err := absPaths(args)
				if err != nil {
					return err
				}
				root = resolved[0]
			}
			if failed := preflight.Failed(preflight.RunAll(cfg, root)); len(failed) > 0 {
				return fmt.Errorf("preflight: %s: %s", failed[0].Name, failed[0].Detail)
			}

			return ctx.withSession(cmd, func(c context.Context, s *session.Session) error {
				report, err := s.Scan(c, root)
				if err != nil {
					ctx.notify(c, func(c context.Context, n notifications.Service) error {
						return n.NotifyError(c, err, "scan "+root)
					})
					return err
				}
				ctx.notify(c, func(c context.Context, n notifications.Service) error {
					return n.NotifyScanCompleted(c, report.Root, report.Loaded(), report.Ready(), len(report.Failed()))
				})
				summary := summarizeScan(s, report)
				if jsonOut {
					return writeJSON(cmd, summary)
				}
				printScan(cmd, summary)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	return cmd
}

func summarizeScan(s *session.Session, report session.ScanReport) scanSummary {
	summary := scanSummary{
		Root:   report.Root,
		ScanID: report.ScanID,
		Loaded: report.Loaded(),
		Ready:  report.Ready(),
	}
	for _, res := range report.Results {
		entry := groupSummary{Path: res.Folder, Counts: map[string]int{}}
		if res.Err != nil {
			entry.Error = res.Err.Error()
			summary.Groups = append(summary.Groups, entry)
			continue
		}
		if view, ok := s.Group(res.Folder); ok {
			entry = summarizeGroup(view)
		}
		summary.Groups = append(summary.Groups, entry)
	}
	return summary
}

func summarizeGroup(view session.GroupView) groupSummary {
	entry := groupSummary{
		Path:    view.Path,
		Subject: view.Meta.SubjectID,
		Ready:   view.Ready,
		Counts:  make(map[string]int, len(view.Counts)),
	}
	for kind, n := range view.Counts {
		entry.Counts[kind.String()] = n
	}
	for _, kind := range view.Missing {
		entry.Missing = append(entry.Missing, kind.String())
	}
	for _, rec := range view.Recordings {
		if !rec.Junk && !rec.Validity.IsGood() {
			entry.Invalid = append(entry.Invalid, rec.Path)
		}
	}
	return entry
}

func printScan(cmd *cobra.Command, summary scanSummary) {
	out := cmd.OutOrStdout()
	if len(summary.Groups) == 0 {
		fmt.Fprintf(out, "No acquisition folders found under %s\n", summary.Root)
		return
	}
	headers := []string{"Folder", "Subject"}
	for _, kind := range filekind.Roles {
		headers = append(headers, roleTitle(kind.String()))
	}
	headers = append(headers, "Ready", "Notes")

	rows := make([][]string, 0, len(summary.Groups))
	for _, g := range summary.Groups {
		row := []string{g.Path, g.Subject}
		for _, kind := range filekind.Roles {
			row = append(row, strconv.Itoa(g.Counts[kind.String()]))
		}
		row = append(row, yesNo(g.Ready), groupNotes(g))
		rows = append(rows, row)
	}
	right := rightAligned{2, 3, 4, 5}
	fmt.Fprintln(out, renderTable(headers, rows, right))
	fmt.Fprintf(out, "%d folder(s) loaded, %d ready\n", summary.Loaded, summary.Ready)
}

func groupNotes(g groupSummary) string {
	var notes []string
	if g.Error != "" {
		notes = append(notes, "error: "+g.Error)
	}
	if len(g.Missing) > 0 {
		notes = append(notes, "missing "+strings.Join(g.Missing, ", "))
	}
	if n := len(g.Invalid); n > 0 {
		notes = append(notes, fmt.Sprintf("%d invalid recording(s)", n))
	}
	return strings.Join(notes, "; ")
}
