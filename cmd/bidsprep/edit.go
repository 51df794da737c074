package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"bidsprep/internal/association"
	"bidsprep/internal/group"
	"bidsprep/internal/notifications"
	"bidsprep/internal/session"
)

func newSetCommand(ctx *commandContext) *cobra.Command {
	var task, run string
	var emptyRoom bool
	cmd := &cobra.Command{
		Use:   "set <recording>",
		Short: "Set the task, run or empty-room flag of a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := absPaths(args)
			if err != nil {
				return err
			}
			var edit session.RecordingEdit
			if cmd.Flags().Changed("task") {
				edit.Task = &task
			}
			if cmd.Flags().Changed("run") {
				edit.Run = &run
			}
			if cmd.Flags().Changed("empty-room") {
				edit.EmptyRoom = &emptyRoom
			}
			if edit.Task == nil && edit.Run == nil && edit.EmptyRoom == nil {
				return fmt.Errorf("nothing to set: pass --task, --run or --empty-room")
			}
			return ctx.withSession(cmd, func(c context.Context, s *session.Session) error {
				if err := loadFolders(c, s, paths); err != nil {
					return err
				}
				v, err := s.EditRecording(c, paths[0], edit)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", baseName(paths[0]), v)
				for _, w := range v.Warnings {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&task, "task", "", "Task name")
	cmd.Flags().StringVar(&run, "run", "", "Run number")
	cmd.Flags().BoolVar(&emptyRoom, "empty-room", false, "Mark the recording as an empty-room capture")
	return cmd
}

// newJunkCommand builds "ignore" when junk is true and "include" otherwise.
func newJunkCommand(ctx *commandContext, junk bool) *cobra.Command {
	use, short := "include", "Include previously ignored recordings again"
	if junk {
		use, short = "ignore", "Exclude recordings from validation and assembly"
	}
	return &cobra.Command{
		Use:   use + " <recording>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := absPaths(args)
			if err != nil {
				return err
			}
			return ctx.withSession(cmd, func(c context.Context, s *session.Session) error {
				if err := loadFolders(c, s, paths); err != nil {
					return err
				}
				s.Select(paths...)
				return reportOutcome(cmd, s.SetJunk(c, junk), fmt.Sprintf("%d recording(s) updated", len(paths)))
			})
		},
	}
}

func newAssociateCommand(ctx *commandContext) *cobra.Command {
	var recordings, markers []string
	var anchor string
	cmd := &cobra.Command{
		Use:   "associate",
		Short: "Bind marker files to recordings in the same folder",
		Long: "Bind marker files to recordings in the same folder.\n\n" +
			"The anchor side is picked first and the other side completes the\n" +
			"association, so guard failures are reported against the second pick.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			recPaths, err := absPaths(recordings)
			if err != nil {
				return err
			}
			markerPaths, err := absPaths(markers)
			if err != nil {
				return err
			}
			first, second := recPaths, markerPaths
			switch anchor {
			case "recordings":
			case "markers":
				first, second = markerPaths, recPaths
			default:
				return fmt.Errorf("invalid --anchor %q (want recordings or markers)", anchor)
			}
			return ctx.withSession(cmd, func(c context.Context, s *session.Session) error {
				if err := loadFolders(c, s, append(append([]string{}, recPaths...), markerPaths...)); err != nil {
					return err
				}
				s.Select(first...)
				out := s.Associate(c)
				if out.Err != nil {
					return reportOutcome(cmd, out, "")
				}
				s.Select(second...)
				msg := fmt.Sprintf("%d marker(s) bound to %d recording(s)", len(markerPaths), len(recPaths))
				return reportOutcome(cmd, s.Associate(c), msg)
			})
		},
	}
	cmd.Flags().StringSliceVarP(&recordings, "recordings", "r", nil, "Recording files to associate")
	cmd.Flags().StringSliceVarP(&markers, "markers", "m", nil, "Marker files to associate")
	cmd.Flags().StringVar(&anchor, "anchor", "recordings", "Side picked first: recordings or markers")
	_ = cmd.MarkFlagRequired("recordings")
	_ = cmd.MarkFlagRequired("markers")
	return cmd
}

func newAssociateAllCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "associate-all <marker>...",
		Short: "Bind marker files to every recording in their folder",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := absPaths(args)
			if err != nil {
				return err
			}
			return ctx.withSession(cmd, func(c context.Context, s *session.Session) error {
				if err := loadFolders(c, s, paths); err != nil {
					return err
				}
				s.Select(paths...)
				out := s.AssociateWithAll(c)
				if out.Reason == association.ReasonNoTargets {
					return fmt.Errorf("no recordings to associate in %s", baseName(paths[0]))
				}
				return reportOutcome(cmd, out, fmt.Sprintf("%d marker(s) bound to %d recording(s)", len(paths), len(out.Changed)))
			})
		},
	}
}

// reportOutcome turns a gesture outcome into command output.
func reportOutcome(cmd *cobra.Command, out association.Outcome, success string) error {
	if out.Err != nil {
		if out.Reason != association.ReasonNone {
			return fmt.Errorf("%s: %w", out.Reason, out.Err)
		}
		return out.Err
	}
	if out.Committed && success != "" {
		fmt.Fprintln(cmd.OutOrStdout(), success)
	}
	return nil
}

func newSubjectCommand(ctx *commandContext) *cobra.Command {
	var id, project, birthdate, sex, dewar string
	cmd := &cobra.Command{
		Use:   "subject <dir>",
		Short: "Edit the subject metadata of a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs, err := absPaths(args)
			if err != nil {
				return err
			}
			var edit session.SubjectEdit
			if cmd.Flags().Changed("id") {
				edit.SubjectID = &id
			}
			if cmd.Flags().Changed("project") {
				edit.Project = &project
			}
			if cmd.Flags().Changed("birthdate") {
				edit.Birthdate = &birthdate
			}
			if cmd.Flags().Changed("sex") {
				edit.Sex = &sex
			}
			if cmd.Flags().Changed("dewar") {
				edit.DewarPosition = &dewar
			}
			changed := edit.SubjectID != nil || edit.Project != nil ||
				edit.Birthdate != nil || edit.Sex != nil || edit.DewarPosition != nil
			if !changed {
				return fmt.Errorf("nothing to set: pass --id, --project, --birthdate, --sex or --dewar")
			}
			return ctx.withSession(cmd, func(c context.Context, s *session.Session) error {
				if res := s.Load(c, dirs[0]); res.Err != nil {
					return fmt.Errorf("load %s: %w", dirs[0], res.Err)
				}
				if err := s.EditSubject(c, dirs[0], edit); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Subject metadata updated for %s\n", dirs[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Subject identifier")
	cmd.Flags().StringVar(&project, "project", "", "Project name")
	cmd.Flags().StringVar(&birthdate, "birthdate", "", "Birthdate (YYYY-MM-DD)")
	cmd.Flags().StringVar(&sex, "sex", "", "Sex: U, M or F")
	cmd.Flags().StringVar(&dewar, "dewar", "", "Dewar position: supine or upright")
	return cmd
}

func newAssembleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "assemble <dir>",
		Short: "Write the conversion manifest for a Ready folder",
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
				res, err := s.Assemble(c, dirs[0])
				if errors.Is(err, group.ErrIncompleteGroup) {
					return err
				}
				if err != nil {
					ctx.notify(c, func(c context.Context, n notifications.Service) error {
						return n.NotifyError(c, err, "assemble "+dirs[0])
					})
					return err
				}
				ctx.notify(c, func(c context.Context, n notifications.Service) error {
					return n.NotifyGroupAssembled(c, dirs[0], res.ManifestPath, res.Jobs)
				})
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d job(s) to %s\n", res.Jobs, res.ManifestPath)
				return nil
			})
		},
	}
}
