package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sakif/snippet-picker/internal/apperror"
	"github.com/sakif/snippet-picker/internal/metrics"
	"github.com/sakif/snippet-picker/internal/model"
	"github.com/sakif/snippet-picker/internal/repository"
	"github.com/sakif/snippet-picker/internal/store/memory"
)

// =========================================================================
// TEST SETUP
// =========================================================================
//
// Services run against the real repository over the in-memory store. The
// repository has its own tests for reorder and cascade details; here we
// check the rules the service adds on top: validation, current-mode
// defaults, import/export shaping, metrics.

type fixture struct {
	repo     *repository.Repository
	snippets *SnippetService
	modes    *ModeService
	metrics  *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repository.New(memory.New())
	m := metrics.New()
	return &fixture{
		repo:     repo,
		snippets: NewSnippetService(repo, repo, logger, m),
		modes:    NewModeService(repo, logger, m),
		metrics:  m,
	}
}

// =========================================================================
// CREATE
// =========================================================================

func TestCreate_Valid(t *testing.T) {
	f := newFixture(t)

	snippet, err := f.snippets.Create(context.Background(), "  greet ", " Hello! ", "")
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if snippet.ID == "" {
		t.Error("Create() should assign an ID")
	}
	if snippet.Name != "greet" || snippet.Content != "Hello!" {
		t.Errorf("Create() did not trim: %+v", snippet)
	}
	if snippet.ModeID != model.DefaultModeID {
		t.Errorf("Create() ModeID = %q, want current mode %q", snippet.ModeID, model.DefaultModeID)
	}
}

func TestCreate_UsesCurrentMode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	work, err := f.modes.Create(ctx, "Work")
	if err != nil {
		t.Fatalf("creating mode: %v", err)
	}

	snippet, err := f.snippets.Create(ctx, "a", "b", "")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if snippet.ModeID != work.ID {
		t.Errorf("Create() ModeID = %q, want %q", snippet.ModeID, work.ID)
	}
}

func TestCreate_ValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		inName    string
		inContent string
		wantField string
	}{
		{"empty name", "", "content", "name"},
		{"whitespace name", "   ", "content", "name"},
		{"empty content", "name", "", "content"},
		{"whitespace content", "name", "\n\t ", "content"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.snippets.Create(context.Background(), tt.inName, tt.inContent, "")
			if !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("Create() error = %v, want ErrValidation", err)
			}

			var appErr *apperror.AppError
			if errors.As(err, &appErr) && appErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.wantField)
			}

			all, _ := f.snippets.ListAll(context.Background())
			if len(all) != 0 {
				t.Error("a rejected create must not write")
			}
		})
	}
}

// =========================================================================
// UPDATE / DELETE
// =========================================================================

func TestUpdate_KeepsModeWhenEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, _ := f.snippets.Create(ctx, "a", "b", "work")

	updated, err := f.snippets.Update(ctx, created.ID, "a2", "b2", "")
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if updated.ModeID != "work" {
		t.Errorf("Update() ModeID = %q, want %q", updated.ModeID, "work")
	}
	if updated.Name != "a2" || updated.Content != "b2" {
		t.Errorf("Update() = %+v", updated)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.snippets.Update(context.Background(), "missing", "a", "b", "")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestUpdate_Invalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, _ := f.snippets.Create(ctx, "a", "b", "")

	_, err := f.snippets.Update(ctx, created.ID, "a", "  ", "")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Update() error = %v, want ErrValidation", err)
	}

	got, _ := f.snippets.Get(ctx, created.ID)
	if got.Content != "b" {
		t.Error("a rejected update must not write")
	}
}

func TestDeleteAllInMode_DefaultsToCurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.snippets.Create(ctx, "keep", "x", "other")
	f.snippets.Create(ctx, "drop1", "x", "")
	f.snippets.Create(ctx, "drop2", "x", "")

	n, err := f.snippets.DeleteAllInMode(ctx, "")
	if err != nil {
		t.Fatalf("DeleteAllInMode() error: %v", err)
	}
	if n != 2 {
		t.Errorf("DeleteAllInMode() = %d, want 2", n)
	}

	all, _ := f.snippets.ListAll(ctx)
	if len(all) != 1 || all[0].Name != "keep" {
		t.Errorf("remaining = %+v", all)
	}
}

// =========================================================================
// SEARCH
// =========================================================================

func TestSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	work, _ := f.modes.Create(ctx, "Work")
	f.modes.Switch(ctx, model.DefaultModeID)

	f.snippets.Create(ctx, "deploy", "kubectl apply", work.ID)
	f.snippets.Create(ctx, "notes", "how to deploy", "")
	f.snippets.Create(ctx, "groceries", "milk", "")

	t.Run("current mode only", func(t *testing.T) {
		got, err := f.snippets.Search(ctx, "  deploy  ", "", false)
		if err != nil {
			t.Fatalf("Search() error: %v", err)
		}
		if len(got) != 1 || got[0].Name != "notes" {
			t.Errorf("Search() = %+v", got)
		}
	})

	t.Run("explicit mode", func(t *testing.T) {
		got, _ := f.snippets.Search(ctx, "deploy", work.ID, false)
		if len(got) != 1 || got[0].Name != "deploy" {
			t.Errorf("Search() = %+v", got)
		}
	})

	t.Run("global annotates modes", func(t *testing.T) {
		got, _ := f.snippets.Search(ctx, "deploy", "", true)
		if len(got) != 2 {
			t.Fatalf("Search() returned %d results, want 2", len(got))
		}
		if got[0].Name != "deploy" || got[0].ModeName != "Work" {
			t.Errorf("first = %+v", got[0])
		}
		if got[1].Name != "notes" || got[1].ModeName != model.DefaultModeName {
			t.Errorf("second = %+v", got[1])
		}
	})

	t.Run("whitespace query lists the mode", func(t *testing.T) {
		got, _ := f.snippets.Search(ctx, "   ", "", false)
		if len(got) != 2 {
			t.Errorf("Search() returned %d results, want 2", len(got))
		}
	})
}

// =========================================================================
// IMPORT / EXPORT
// =========================================================================

func TestImport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	work, _ := f.modes.Create(ctx, "Work")

	result, err := f.snippets.Import(ctx, "A\n1\n\nB\n2\n3\n\nBad")
	if err != nil {
		t.Fatalf("Import() error: %v", err)
	}
	if len(result.Imported) != 2 || result.Invalid != 1 {
		t.Fatalf("Import() = %d imported, %d invalid", len(result.Imported), result.Invalid)
	}
	for _, s := range result.Imported {
		if s.ModeID != work.ID {
			t.Errorf("imported snippet mode = %q, want current %q", s.ModeID, work.ID)
		}
	}
	if result.Imported[1].Content != "2\n3" {
		t.Errorf("second content = %q", result.Imported[1].Content)
	}
}

func TestImport_NothingValidWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.snippets.Import(ctx, "only-a-name\n\nanother")
	if err != nil {
		t.Fatalf("Import() error: %v", err)
	}
	if len(result.Imported) != 0 || result.Invalid != 2 {
		t.Errorf("Import() = %+v", result)
	}
	all, _ := f.snippets.ListAll(ctx)
	if len(all) != 0 {
		t.Error("no valid blocks must not write")
	}
}

func TestImport_EmptyText(t *testing.T) {
	f := newFixture(t)

	_, err := f.snippets.Import(context.Background(), "  \n ")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Import() error = %v, want ErrValidation", err)
	}
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.snippets.Create(ctx, "A", "1", "")
	f.snippets.Create(ctx, "X", "9", "other")
	f.snippets.Create(ctx, "B", "2", "")

	mode, err := f.snippets.Export(ctx, "", false)
	if err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	if mode.FileName != "prompts_Default_export.txt" {
		t.Errorf("FileName = %q", mode.FileName)
	}
	if mode.Body != "A\n1\n\nB\n2\n\n" || mode.Count != 2 {
		t.Errorf("Export() = %+v", mode)
	}

	all, _ := f.snippets.Export(ctx, "", true)
	if all.FileName != "prompts_export.txt" || all.Count != 3 {
		t.Errorf("Export(all) = %+v", all)
	}
}

func TestExportThenImport_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.snippets.Create(ctx, "greet", "Hello", "")
	f.snippets.Create(ctx, "multi", "one\ntwo", "")
	exported, _ := f.snippets.Export(ctx, "", false)

	target := newFixture(t)
	result, err := target.snippets.Import(ctx, exported.Body)
	if err != nil {
		t.Fatalf("Import() error: %v", err)
	}

	got := map[string]string{}
	for _, s := range result.Imported {
		got[s.Name] = s.Content
	}
	if len(got) != 2 || got["greet"] != "Hello" || got["multi"] != "one\ntwo" {
		t.Errorf("round trip = %v", got)
	}
}

// =========================================================================
// METRICS
// =========================================================================

func TestMetricsRecordOutcome(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.snippets.Create(ctx, "a", "b", "")
	f.snippets.Create(ctx, "", "b", "")
	f.snippets.Delete(ctx, "missing")

	check := func(op, result string, want float64) {
		t.Helper()
		got := testutil.ToFloat64(f.metrics.Operations.WithLabelValues("snippet", op, result))
		if got != want {
			t.Errorf("operations{%s,%s} = %v, want %v", op, result, got, want)
		}
	}
	check("create", "ok", 1)
	check("create", "validation", 1)
	check("delete", "not_found", 1)
}
