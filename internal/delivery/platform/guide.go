package platform

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

const permissionHelp = `Automatic paste needs the Accessibility permission.

  1. Open System Settings → Privacy & Security → Accessibility
  2. Enable the app you run the picker from (your terminal, or snippet-picker)
  3. Try again

Until then, snippets are copied to the clipboard and you can paste with ⌘V.
`

// WriterGuide prints the permission explanation to a writer (stderr for the
// terminal picker).
type WriterGuide struct {
	W io.Writer
}

func (g WriterGuide) ExplainPastePermission(context.Context) error {
	_, err := io.WriteString(g.W, permissionHelp)
	return err
}

// WriterNotifier prints one message per line.
type WriterNotifier struct {
	W io.Writer
}

func (n WriterNotifier) Notify(message string) {
	fmt.Fprintln(n.W, message)
}

// LogGuide logs the explanation instead of showing it. The daemon has no
// screen of its own; the log line tells whoever runs it what to grant.
type LogGuide struct {
	Logger *slog.Logger
}

func (g LogGuide) ExplainPastePermission(context.Context) error {
	g.Logger.Warn("automatic paste needs the Accessibility permission; grant it in System Settings → Privacy & Security → Accessibility")
	return nil
}
