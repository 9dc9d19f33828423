package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sakif/snippet-picker/internal/model"
)

func (s *session) modeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mode",
		Short: "Manage modes (groups of snippets)",
		Long: `Modes group snippets. Exactly one mode is current; new snippets and
searches use it unless told otherwise. Deleting a mode deletes its snippets.`,
	}
	cmd.AddCommand(
		s.modeListCmd(),
		s.modeAddCmd(),
		s.modeRenameCmd(),
		s.modeRmCmd(),
		s.modeUseCmd(),
		s.modeCycleCmd("next", "Switch to the next mode", 1),
		s.modeCycleCmd("prev", "Switch to the previous mode", -1),
		s.modeUpCmd(),
		s.modeTopCmd(),
	)
	return cmd
}

func printMode(w io.Writer, verb string, m model.Mode) {
	fmt.Fprintf(w, "%s %s [%s]\n", verb, m.Name, m.ID)
}

func (s *session) modeListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List modes, marking the current one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			modes, err := s.app.Modes.List(ctx)
			if err != nil {
				return err
			}
			current, err := s.app.Modes.Current(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, m := range modes {
				marker := " "
				if m.ID == current.ID {
					marker = "*"
				}
				fmt.Fprintf(w, "%s %s [%s]\n", marker, m.Name, m.ID)
			}
			return nil
		},
	}
}

func (s *session) modeAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Create a mode and make it current",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := s.app.Modes.Create(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printMode(cmd.OutOrStdout(), "Created", m)
			return nil
		},
	}
}

func (s *session) modeRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a mode",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := s.app.Modes.Rename(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			printMode(cmd.OutOrStdout(), "Renamed to", m)
			return nil
		},
	}
}

func (s *session) modeRmCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a mode and all of its snippets",
		Long: `Delete a mode together with its snippets. The last remaining mode cannot
be deleted. Requires --yes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete without --yes")
			}
			current, err := s.app.Modes.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Deleted %s\n", args[0])
			printMode(w, "Current mode:", current)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}

func (s *session) modeUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <id>",
		Short: "Make a mode current",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := s.app.Modes.Switch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printMode(cmd.OutOrStdout(), "Current mode:", m)
			return nil
		},
	}
}

func (s *session) modeCycleCmd(use, short string, direction int) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := s.app.Modes.Cycle(cmd.Context(), direction)
			if err != nil {
				return err
			}
			printMode(cmd.OutOrStdout(), "Current mode:", m)
			return nil
		},
	}
}

func (s *session) modeUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up <id>",
		Short: "Move a mode one place up",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := s.app.Modes.MoveUp(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), outcome)
			return nil
		},
	}
}

func (s *session) modeTopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "top <id>",
		Short: "Move a mode to the top",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := s.app.Modes.MoveToTop(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), outcome)
			return nil
		},
	}
}
