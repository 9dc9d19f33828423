package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/snippet-picker/internal/model"
)

func (s *session) listCmd() *cobra.Command {
	var modeID string
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List snippets in the current mode",
		Long: `List snippets in their saved order. Use --mode to list another mode and
--all to list every snippet regardless of mode.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				snippets []model.Snippet
				err      error
			)
			if all {
				snippets, err = s.app.Snippets.ListAll(cmd.Context())
			} else {
				snippets, err = s.app.Snippets.List(cmd.Context(), modeID)
			}
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(snippets) == 0 {
				fmt.Fprintln(w, "No snippets.")
				return nil
			}
			for i, sn := range snippets {
				printSnippet(w, i, sn, 0, "")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&modeID, "mode", "", "mode id (default: current mode)")
	cmd.Flags().BoolVar(&all, "all", false, "list every mode")
	return cmd
}

func (s *session) searchCmd() *cobra.Command {
	var modeID string
	var global bool
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Rank snippets against a query",
		Long: `Rank snippets by how well their name and content match query. An empty
query ("") lists the mode in saved order. --global searches every mode and
tags each result with its mode name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := s.app.Snippets.Search(cmd.Context(), args[0], modeID, global)
			if err != nil {
				return err
			}
			printResults(cmd.OutOrStdout(), results)
			return nil
		},
	}
	cmd.Flags().StringVar(&modeID, "mode", "", "mode id (default: current mode)")
	cmd.Flags().BoolVarP(&global, "global", "g", false, "search all modes")
	return cmd
}

// readContent returns arg, or stdin when arg is "-".
func (s *session) readContent(arg string) (string, error) {
	if arg != "-" {
		return arg, nil
	}
	b, err := io.ReadAll(s.opts.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimSuffix(string(b), "\n"), nil
}

func (s *session) addCmd() *cobra.Command {
	var modeID string
	cmd := &cobra.Command{
		Use:   "add <name> <content|->",
		Short: "Add a snippet",
		Long: `Add a snippet to the current mode (or --mode). Pass "-" as content to
read it from stdin:

  pbpaste | picker add review -`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := s.readContent(args[1])
			if err != nil {
				return err
			}
			sn, err := s.app.Snippets.Create(cmd.Context(), args[0], content, modeID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s [%s]\n", sn.Name, sn.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&modeID, "mode", "", "mode id (default: current mode)")
	return cmd
}

func (s *session) editCmd() *cobra.Command {
	var name, content, modeID string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a snippet's name, content or mode",
		Long: `Change a snippet in place; its position is kept. Flags that are not given
keep their current value. --content - reads the new content from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cur, err := s.app.Snippets.Get(ctx, args[0])
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("name") {
				name = cur.Name
			}
			if cmd.Flags().Changed("content") {
				if content, err = s.readContent(content); err != nil {
					return err
				}
			} else {
				content = cur.Content
			}

			sn, err := s.app.Snippets.Update(ctx, cur.ID, name, content, modeID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s [%s]\n", sn.Name, sn.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&content, "content", "", `new content ("-" for stdin)`)
	cmd.Flags().StringVar(&modeID, "mode", "", "move to this mode")
	return cmd
}

func (s *session) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a snippet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.app.Snippets.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func (s *session) clearModeCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear-mode [mode-id]",
		Short: "Delete every snippet in a mode",
		Long: `Delete every snippet in a mode (the current one by default). The mode
itself is kept. Requires --yes.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete without --yes")
			}
			modeID := ""
			if len(args) == 1 {
				modeID = args[0]
			}
			n, err := s.app.Snippets.DeleteAllInMode(cmd.Context(), modeID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d snippet(s)\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}

func (s *session) upCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up <id>",
		Short: "Move a snippet one place up within its mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := s.app.Snippets.MoveUp(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), outcome)
			return nil
		},
	}
}

func (s *session) topCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "top <id>",
		Short: "Move a snippet to the top of its mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := s.app.Snippets.MoveToTop(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), outcome)
			return nil
		},
	}
}

func (s *session) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Import snippets from a text file",
		Long: `Import snippets into the current mode. Blocks are separated by blank
lines; each block's first line is the name and the rest is the content:

  greet
  Hello there!

  sign-off
  Best,
  Sam

Blocks without a name or content are skipped and counted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				b   []byte
				err error
			)
			if args[0] == "-" {
				b, err = io.ReadAll(s.opts.Stdin)
			} else {
				b, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			res, err := s.app.Snippets.Import(cmd.Context(), string(b))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d snippet(s)", len(res.Imported))
			if res.Invalid > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), ", skipped %d invalid block(s)", res.Invalid)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
}

func (s *session) exportCmd() *cobra.Command {
	var (
		modeID string
		all    bool
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export snippets in the import format",
		Long: `Print the current mode (or --mode, or --all) in the import format. With -o
the export is written to a file; if -o names a directory the suggested file
name (prompts_<mode>_export.txt) is used inside it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := s.app.Snippets.Export(cmd.Context(), modeID, all)
			if err != nil {
				return err
			}
			if output == "" {
				_, err := io.WriteString(cmd.OutOrStdout(), res.Body)
				return err
			}

			path := output
			if info, err := os.Stat(output); err == nil && info.IsDir() {
				path = filepath.Join(output, res.FileName)
			}
			if err := os.WriteFile(path, []byte(res.Body), 0o644); err != nil {
				return fmt.Errorf("writing export: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d snippet(s) to %s\n", res.Count, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&modeID, "mode", "", "mode id (default: current mode)")
	cmd.Flags().BoolVar(&all, "all", false, "export every mode")
	cmd.Flags().StringVarP(&output, "output", "o", "", "file or directory to write to")
	return cmd
}
