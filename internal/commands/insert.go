package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/snippet-picker/internal/apperror"
	"github.com/sakif/snippet-picker/internal/auth"
	"github.com/sakif/snippet-picker/internal/delivery"
	"github.com/sakif/snippet-picker/internal/picker"
	"github.com/sakif/snippet-picker/internal/relay"
)

// OutcomeRelayed is reported when content was handed to the daemon for an
// in-page overlay instead of being pasted locally.
const OutcomeRelayed delivery.Outcome = "relayed"

// relayDeliverer sends content to the daemon's websocket hub, which passes
// it on to connected overlays. When no overlay takes it, or the daemon is
// unreachable, the content goes through the local deliverer instead so it
// at least lands on the clipboard.
type relayDeliverer struct {
	url      string
	token    string
	fallback picker.Deliverer
	logger   *slog.Logger
}

func (d relayDeliverer) Deliver(ctx context.Context, content string, target delivery.Target) (delivery.Result, error) {
	if content == "" {
		return delivery.Result{Outcome: delivery.OutcomeFailed, Message: delivery.MessageNothingToAdd},
			apperror.ValidationFailed("content", delivery.MessageNothingToAdd)
	}

	n, err := relay.Publish(ctx, d.url, d.token, relay.Message{Type: relay.TypeInsertPrompt, Content: content})
	switch {
	case err != nil:
		d.logger.Warn("relay unavailable, delivering locally", slog.String("error", err.Error()))
	case n == 0:
		d.logger.Warn("no overlay connected, delivering locally")
	default:
		return delivery.Result{Outcome: OutcomeRelayed, Message: "sent to overlay"}, nil
	}
	return d.fallback.Deliver(ctx, content, target)
}

func (s *session) insertCmd() *cobra.Command {
	var (
		global  bool
		index   int
		toRelay bool
		daemon  string
		token   string
	)
	cmd := &cobra.Command{
		Use:   "insert <id|query>",
		Short: "Paste a snippet into the app you were typing in",
		Long: `Copy a snippet to the clipboard, bring back the app that was focused before
the picker, and paste it there.

The argument is tried as a snippet id first. Otherwise it is a search query
and the best match in the current mode is used (--index picks another rank,
--global searches every mode). When automatic paste is unavailable the snippet
stays on the clipboard and you paste it yourself.

With --relay the snippet is sent to the running daemon instead, which inserts
it through a connected in-page overlay.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var p *picker.Picker
			hider := delivery.HiderFunc(func(ctx context.Context) error { return p.Hide(ctx) })

			s.recordFocus(ctx)
			deliverer := s.opts.NewDeliverer(s.app, hider, cmd.ErrOrStderr())
			if toRelay {
				if daemon == "" {
					daemon = "ws://" + s.app.Config.Addr() + "/ws"
				}
				deliverer = relayDeliverer{url: daemon, token: token, fallback: deliverer, logger: s.app.Logger}
			}

			p = picker.New(picker.Config{
				Search:  s.app.Snippets,
				Modes:   s.app.Modes,
				Deliver: deliverer,
				Logger:  s.app.Logger,
			})

			name, res, err := s.insert(ctx, p, deliverer, args[0], global, index)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, res.Outcome)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&global, "global", "g", false, "search all modes")
	cmd.Flags().IntVarP(&index, "index", "n", 1, "use the n-th best match")
	cmd.Flags().BoolVar(&toRelay, "relay", false, "send to the daemon's overlay instead of pasting locally")
	cmd.Flags().StringVar(&daemon, "daemon", "", "daemon websocket URL (default ws://127.0.0.1:<PORT>/ws)")
	cmd.Flags().StringVar(&token, "token", os.Getenv("PICKER_TOKEN"), "surface token for the daemon")
	return cmd
}

// recordFocus notes the app the user was in before the picker ran. The
// terminal itself is discarded through SELF_APP_ID.
func (s *session) recordFocus(ctx context.Context) {
	if err := s.app.Focus.Record(ctx); err != nil {
		s.app.Logger.Warn("reading frontmost app", slog.String("error", err.Error()))
	}
}

// insert delivers the snippet with id arg, or the index-th search result
// for arg, and returns the delivered snippet's name.
func (s *session) insert(ctx context.Context, p *picker.Picker, d picker.Deliverer, arg string, global bool, index int) (string, delivery.Result, error) {
	sn, err := s.app.Snippets.Get(ctx, arg)
	if err == nil {
		res, err := d.Deliver(ctx, sn.Content, delivery.NativeTarget{})
		return sn.Name, res, err
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return "", delivery.Result{}, err
	}

	if err := p.Show(ctx); err != nil {
		return "", delivery.Result{}, err
	}
	if err := p.SetGlobal(ctx, global); err != nil {
		return "", delivery.Result{}, err
	}
	if err := p.SetQuery(ctx, arg); err != nil {
		return "", delivery.Result{}, err
	}
	if !p.Select(index - 1) {
		return "", delivery.Result{}, &apperror.AppError{
			Err:     apperror.ErrNotFound,
			Message: fmt.Sprintf("no snippet matches %q", arg),
		}
	}

	selected, _ := p.Selected()
	res, err := p.Confirm(ctx)
	return selected.Name, res, err
}

func (s *session) tokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <surface>",
		Short: "Issue a token a surface uses to reach the daemon",
		Long: `Issue a signed token for a surface (overlay, extension, terminal). The
daemon accepts it as "Authorization: Bearer <token>" or ?token= on the
websocket URL. Requires TOKEN_SECRET.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if s.app.Config.TokenSecret == "" {
				return fmt.Errorf("TOKEN_SECRET is not set")
			}
			tokens, err := auth.NewTokenService(s.app.Config.TokenSecret)
			if err != nil {
				return err
			}
			tok, err := tokens.Issue(args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTokenTTL, "token lifetime")
	return cmd
}

func (s *session) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show where snippets are stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			all, err := s.app.Snippets.ListAll(ctx)
			if err != nil {
				return err
			}
			modes, err := s.app.Modes.List(ctx)
			if err != nil {
				return err
			}
			current, err := s.app.Modes.Current(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "store:    %s (%s)\n", s.app.Config.StoreDriver, s.app.StoreLocation())
			fmt.Fprintf(w, "daemon:   http://%s\n", s.app.Config.Addr())
			fmt.Fprintf(w, "modes:    %d (current: %s)\n", len(modes), current.Name)
			fmt.Fprintf(w, "snippets: %d\n", len(all))
			return nil
		},
	}
}
