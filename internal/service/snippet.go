// Package service contains the business logic every picker surface calls.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Surface (HTTP handler, CLI command, overlay relay) → parses input, renders output
//	Service                                           → validates, applies defaults, logs
//	Repository                                        → read→modify→write on the store
//
// WHY A SEPARATE SERVICE LAYER?
// The same rules apply no matter which surface the user is in: a snippet
// needs a name and content, a mode name is 1–10 characters, a new snippet
// lands in the current mode. Putting those rules here means the daemon API
// and the terminal picker cannot drift apart the way three copy-pasted UI
// shells do.
//
// DEPENDENCY INJECTION:
// Services take repository interfaces, not a concrete store. Tests pass a
// repository over the in-memory store; the daemon passes one over SQLite.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/snippet-picker/internal/apperror"
	"github.com/sakif/snippet-picker/internal/metrics"
	"github.com/sakif/snippet-picker/internal/model"
	"github.com/sakif/snippet-picker/internal/ranking"
	"github.com/sakif/snippet-picker/internal/repository"
)

// ImportResult reports how many blocks became snippets and how many were
// skipped as invalid.
type ImportResult struct {
	Imported []model.Snippet `json:"imported"`
	Invalid  int             `json:"invalid"`
}

// ExportResult is a rendered export, ready to be saved or downloaded.
type ExportResult struct {
	FileName string `json:"fileName"`
	Body     string `json:"body"`
	Count    int    `json:"count"`
}

// SnippetService handles snippet business logic.
type SnippetService struct {
	snippets repository.SnippetRepository
	modes    repository.ModeRepository
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewSnippetService creates a SnippetService. m may be nil.
func NewSnippetService(snippets repository.SnippetRepository, modes repository.ModeRepository, logger *slog.Logger, m *metrics.Metrics) *SnippetService {
	return &SnippetService{
		snippets: snippets,
		modes:    modes,
		logger:   logger,
		metrics:  m,
	}
}

// resultLabel turns an error into a low-cardinality metrics label.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperror.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperror.ErrValidation):
		return "validation"
	case errors.Is(err, apperror.ErrLastItemProtected):
		return "last_item_protected"
	}
	return "error"
}

// isExpected reports errors that are normal outcomes of user actions and
// should not be logged as failures.
func isExpected(err error) bool {
	return errors.Is(err, apperror.ErrNotFound) ||
		errors.Is(err, apperror.ErrValidation) ||
		errors.Is(err, apperror.ErrLastItemProtected)
}

func (s *SnippetService) record(op string, err error) {
	s.metrics.RecordOperation("snippet", op, resultLabel(err))
	if err != nil && !isExpected(err) {
		s.logger.Error("snippet operation failed",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
	}
}

// resolveMode returns modeID, or the current mode's id when modeID is empty.
func (s *SnippetService) resolveMode(ctx context.Context, modeID string) (model.Mode, error) {
	if modeID = strings.TrimSpace(modeID); modeID != "" {
		modes, err := s.modes.ListModes(ctx)
		if err != nil {
			return model.Mode{}, err
		}
		for _, m := range modes {
			if m.ID == modeID {
				return m, nil
			}
		}
		// Snippets may reference a mode that is not in the list (older data).
		return model.Mode{ID: modeID, Name: modeID}, nil
	}
	return s.modes.CurrentMode(ctx)
}

// List returns the snippets of one mode (current mode when modeID is empty)
// in stored order.
func (s *SnippetService) List(ctx context.Context, modeID string) ([]model.Snippet, error) {
	mode, err := s.resolveMode(ctx, modeID)
	if err != nil {
		return nil, fmt.Errorf("listing snippets: %w", err)
	}
	all, err := s.snippets.ListSnippets(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing snippets: %w", err)
	}
	return ranking.FilterMode(all, mode.ID), nil
}

// ListAll returns the global collection.
func (s *SnippetService) ListAll(ctx context.Context) ([]model.Snippet, error) {
	all, err := s.snippets.ListSnippets(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing snippets: %w", err)
	}
	return all, nil
}

// Search ranks snippets for query.
//
// With global=false only modeID (or the current mode) is searched. With
// global=true every mode is searched and each result carries its mode name.
// The query is trimmed here, so callers can pass raw user input.
func (s *SnippetService) Search(ctx context.Context, query, modeID string, global bool) ([]model.ScoredSnippet, error) {
	query = ranking.NormalizeQuery(query)

	all, err := s.snippets.ListSnippets(ctx)
	if err != nil {
		return nil, fmt.Errorf("searching snippets: %w", err)
	}

	if global {
		modes, err := s.modes.ListModes(ctx)
		if err != nil {
			return nil, fmt.Errorf("searching snippets: %w", err)
		}
		return ranking.RankGlobal(all, modes, query), nil
	}

	mode, err := s.resolveMode(ctx, modeID)
	if err != nil {
		return nil, fmt.Errorf("searching snippets: %w", err)
	}
	return ranking.Rank(ranking.FilterMode(all, mode.ID), query), nil
}

// Get returns one snippet by id.
func (s *SnippetService) Get(ctx context.Context, id string) (model.Snippet, error) {
	all, err := s.snippets.ListSnippets(ctx)
	if err != nil {
		return model.Snippet{}, fmt.Errorf("getting snippet: %w", err)
	}
	for _, sn := range all {
		if sn.ID == id {
			return sn, nil
		}
	}
	return model.Snippet{}, apperror.NotFound("snippet", id)
}

// Create validates and appends a new snippet. An empty modeID puts it in the
// current mode.
func (s *SnippetService) Create(ctx context.Context, name, content, modeID string) (snippet model.Snippet, err error) {
	defer func() { s.record("create", err) }()

	in := snippetInput{Name: strings.TrimSpace(name), Content: strings.TrimSpace(content)}
	if err := validateStruct("snippet", in); err != nil {
		return model.Snippet{}, err
	}

	mode, err := s.resolveMode(ctx, modeID)
	if err != nil {
		return model.Snippet{}, fmt.Errorf("creating snippet: %w", err)
	}

	snippet, err = s.snippets.CreateSnippet(ctx, model.Snippet{
		Name:    in.Name,
		Content: in.Content,
		ModeID:  mode.ID,
	})
	if err != nil {
		return model.Snippet{}, fmt.Errorf("creating snippet: %w", err)
	}

	s.logger.Info("snippet created",
		slog.String("id", snippet.ID),
		slog.String("name", snippet.Name),
		slog.String("mode", snippet.ModeID),
	)
	return snippet, nil
}

// Update replaces a snippet's fields, keeping its position. An empty modeID
// keeps the snippet in its current mode.
//
// If another surface deleted the snippet in the meantime the result is
// NotFound and nothing is written.
func (s *SnippetService) Update(ctx context.Context, id, name, content, modeID string) (snippet model.Snippet, err error) {
	defer func() { s.record("update", err) }()

	in := snippetInput{Name: strings.TrimSpace(name), Content: strings.TrimSpace(content)}
	if err := validateStruct("snippet", in); err != nil {
		return model.Snippet{}, err
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return model.Snippet{}, err
	}
	if modeID = strings.TrimSpace(modeID); modeID == "" {
		modeID = existing.ModeID
	}

	snippet, err = s.snippets.UpdateSnippet(ctx, model.Snippet{
		ID:      id,
		Name:    in.Name,
		Content: in.Content,
		ModeID:  modeID,
	})
	if err != nil {
		return model.Snippet{}, err
	}

	s.logger.Info("snippet updated",
		slog.String("id", snippet.ID),
		slog.String("name", snippet.Name),
	)
	return snippet, nil
}

// Delete removes one snippet.
func (s *SnippetService) Delete(ctx context.Context, id string) (err error) {
	defer func() { s.record("delete", err) }()

	if err := s.snippets.DeleteSnippet(ctx, id); err != nil {
		return err
	}
	s.logger.Info("snippet deleted", slog.String("id", id))
	return nil
}

// DeleteAllInMode removes every snippet of a mode (current mode when modeID
// is empty) and returns how many were removed.
func (s *SnippetService) DeleteAllInMode(ctx context.Context, modeID string) (n int, err error) {
	defer func() { s.record("delete_mode_snippets", err) }()

	mode, err := s.resolveMode(ctx, modeID)
	if err != nil {
		return 0, fmt.Errorf("clearing mode: %w", err)
	}
	n, err = s.snippets.DeleteSnippetsInMode(ctx, mode.ID)
	if err != nil {
		return 0, fmt.Errorf("clearing mode: %w", err)
	}

	s.logger.Info("mode snippets deleted",
		slog.String("mode", mode.ID),
		slog.Int("count", n),
	)
	return n, nil
}

// MoveUp swaps a snippet with the previous snippet of its mode.
func (s *SnippetService) MoveUp(ctx context.Context, id string) (outcome repository.Outcome, err error) {
	defer func() { s.record("move_up", err) }()
	return s.snippets.MoveSnippetUp(ctx, id)
}

// MoveToTop moves a snippet to the front of its mode.
func (s *SnippetService) MoveToTop(ctx context.Context, id string) (outcome repository.Outcome, err error) {
	defer func() { s.record("move_top", err) }()
	return s.snippets.MoveSnippetToTop(ctx, id)
}

// Import parses text and appends every valid block to the current mode in a
// single write. Invalid blocks are counted, not reported as errors. When no
// block is valid nothing is written.
func (s *SnippetService) Import(ctx context.Context, text string) (result ImportResult, err error) {
	defer func() { s.record("import", err) }()

	if strings.TrimSpace(text) == "" {
		return ImportResult{}, apperror.ValidationFailed("text", "nothing to import")
	}

	blocks, invalid := repository.ParseImport(text)
	result = ImportResult{Imported: []model.Snippet{}, Invalid: invalid}
	if len(blocks) == 0 {
		return result, nil
	}

	mode, err := s.modes.CurrentMode(ctx)
	if err != nil {
		return ImportResult{}, fmt.Errorf("importing snippets: %w", err)
	}

	snippets := make([]model.Snippet, len(blocks))
	for i, b := range blocks {
		snippets[i] = model.Snippet{Name: b.Name, Content: b.Content, ModeID: mode.ID}
	}
	created, err := s.snippets.AppendSnippets(ctx, snippets)
	if err != nil {
		return ImportResult{}, fmt.Errorf("importing snippets: %w", err)
	}
	result.Imported = created

	s.logger.Info("snippets imported",
		slog.String("mode", mode.ID),
		slog.Int("imported", len(created)),
		slog.Int("invalid", invalid),
	)
	return result, nil
}

// Export renders one mode (current mode when modeID is empty), or every
// snippet when all is true. It never writes.
func (s *SnippetService) Export(ctx context.Context, modeID string, all bool) (ExportResult, error) {
	snippets, err := s.snippets.ListSnippets(ctx)
	if err != nil {
		return ExportResult{}, fmt.Errorf("exporting snippets: %w", err)
	}

	if all {
		return ExportResult{
			FileName: repository.ExportFileName("", true),
			Body:     repository.FormatExport(snippets),
			Count:    len(snippets),
		}, nil
	}

	mode, err := s.resolveMode(ctx, modeID)
	if err != nil {
		return ExportResult{}, fmt.Errorf("exporting snippets: %w", err)
	}
	inMode := ranking.FilterMode(snippets, mode.ID)
	return ExportResult{
		FileName: repository.ExportFileName(mode.Name, false),
		Body:     repository.FormatExport(inMode),
		Count:    len(inMode),
	}, nil
}
