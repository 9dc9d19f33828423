// Package commands implements the terminal picker: a cobra CLI over the same
// services and store the daemon uses. It talks to the store directly, so it
// works with or without the daemon running.
package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/sakif/snippet-picker/internal/app"
	"github.com/sakif/snippet-picker/internal/config"
	"github.com/sakif/snippet-picker/internal/delivery"
	"github.com/sakif/snippet-picker/internal/delivery/platform"
	"github.com/sakif/snippet-picker/internal/model"
	"github.com/sakif/snippet-picker/internal/picker"
)

// Options lets tests swap the store and the delivery backend.
type Options struct {
	// Config is loaded from the environment when nil.
	Config *config.Config
	// NewDeliverer builds the deliverer for `insert`. The default uses the
	// real clipboard and paste keystroke.
	NewDeliverer func(a *app.App, hider delivery.PickerHider, stderr io.Writer) picker.Deliverer
	Stdin        io.Reader
}

// session is the state one command invocation shares with its subcommands.
type session struct {
	opts    Options
	app     *app.App
	driver  string
	verbose bool
}

func defaultDeliverer(a *app.App, hider delivery.PickerHider, stderr io.Writer) picker.Deliverer {
	return a.NewDeliveryController(app.DeliveryParts{
		Hider:    hider,
		Guide:    platform.WriterGuide{W: stderr},
		Notifier: platform.WriterNotifier{W: stderr},
	})
}

// New returns the root command.
func New(opts Options) *cobra.Command {
	if opts.NewDeliverer == nil {
		opts.NewDeliverer = defaultDeliverer
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	s := &session{opts: opts}

	root := &cobra.Command{
		Use:   "picker",
		Short: "Manage and insert text snippets",
		Long: `picker manages a library of text snippets grouped into modes and
inserts them into the app you were typing in.

Examples:
  picker add greet "Hello there!"       # add to the current mode
  picker search gre                     # ranked search in the current mode
  picker insert greet                   # paste the best match where you were typing
  picker mode add Work                  # create a mode and switch to it
  picker export --all -o backup.txt     # everything, in the import format

Storage is chosen with STORE_DRIVER (sqlite, file, memory, redis) or --store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return s.open(cmd)
		},
	}
	root.PersistentFlags().StringVar(&s.driver, "store", "", "store driver override (sqlite, file, memory, redis)")
	root.PersistentFlags().BoolVarP(&s.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		s.listCmd(),
		s.searchCmd(),
		s.addCmd(),
		s.editCmd(),
		s.rmCmd(),
		s.clearModeCmd(),
		s.upCmd(),
		s.topCmd(),
		s.importCmd(),
		s.exportCmd(),
		s.modeCmd(),
		s.insertCmd(),
		s.tokenCmd(),
		s.infoCmd(),
	)
	s.closeAfterRun(root)
	return root
}

// closeAfterRun makes every runnable command release the store when it
// returns, including on error (PersistentPostRunE is skipped then).
func (s *session) closeAfterRun(cmd *cobra.Command) {
	for _, c := range cmd.Commands() {
		s.closeAfterRun(c)
	}
	run := cmd.RunE
	if run == nil {
		return
	}
	cmd.RunE = func(c *cobra.Command, args []string) (err error) {
		defer func() { err = errors.Join(err, s.close()) }()
		return run(c, args)
	}
}

func (s *session) open(cmd *cobra.Command) error {
	cfg := s.opts.Config
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if s.driver != "" {
		c := *cfg
		c.StoreDriver = s.driver
		cfg = &c
	}

	level := slog.LevelWarn
	if s.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	a, err := app.New(cmd.Context(), cfg, logger, nil)
	if err != nil {
		return err
	}
	s.app = a
	return nil
}

func (s *session) close() error {
	if s.app == nil {
		return nil
	}
	err := s.app.Close()
	s.app = nil
	return err
}

// =========================================================================
// OUTPUT
// =========================================================================

const previewWidth = 60

// preview is the first line of content, cut to previewWidth runes.
func preview(content string) string {
	line, _, more := strings.Cut(content, "\n")
	if utf8.RuneCountInString(line) > previewWidth {
		runes := []rune(line)
		return string(runes[:previewWidth-1]) + "…"
	}
	if more {
		return line + " …"
	}
	return line
}

func printSnippet(w io.Writer, i int, s model.Snippet, score int, modeName string) {
	fmt.Fprintf(w, "%d. %s  [%s]", i+1, s.Name, s.ID)
	if modeName != "" {
		fmt.Fprintf(w, "  (%s)", modeName)
	}
	if score > 0 {
		fmt.Fprintf(w, "  score=%d", score)
	}
	fmt.Fprintf(w, "\n   %s\n", preview(s.Content))
}

func printResults(w io.Writer, results []model.ScoredSnippet) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No snippets.")
		return
	}
	for i, r := range results {
		printSnippet(w, i, r.Snippet, r.Score, r.ModeName)
	}
}
