package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/snippet-picker/internal/apperror"
	"github.com/sakif/snippet-picker/internal/metrics"
	"github.com/sakif/snippet-picker/internal/model"
	"github.com/sakif/snippet-picker/internal/repository"
)

// ModeService handles mode business logic.
type ModeService struct {
	modes   repository.ModeRepository
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewModeService creates a ModeService. m may be nil.
func NewModeService(modes repository.ModeRepository, logger *slog.Logger, m *metrics.Metrics) *ModeService {
	return &ModeService{
		modes:   modes,
		logger:  logger,
		metrics: m,
	}
}

func (s *ModeService) record(op string, err error) {
	s.metrics.RecordOperation("mode", op, resultLabel(err))
	if err != nil && !isExpected(err) {
		s.logger.Error("mode operation failed",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
	}
}

// List returns every mode in display order.
func (s *ModeService) List(ctx context.Context) ([]model.Mode, error) {
	modes, err := s.modes.ListModes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing modes: %w", err)
	}
	return modes, nil
}

// Current returns the active mode.
func (s *ModeService) Current(ctx context.Context) (model.Mode, error) {
	mode, err := s.modes.CurrentMode(ctx)
	if err != nil {
		return model.Mode{}, fmt.Errorf("reading current mode: %w", err)
	}
	return mode, nil
}

// Create adds a mode and switches to it.
func (s *ModeService) Create(ctx context.Context, name string) (mode model.Mode, err error) {
	defer func() { s.record("create", err) }()

	in := modeInput{Name: strings.TrimSpace(name)}
	if err := validateStruct("mode", in); err != nil {
		return model.Mode{}, err
	}

	mode, err = s.modes.CreateMode(ctx, in.Name)
	if err != nil {
		return model.Mode{}, fmt.Errorf("creating mode: %w", err)
	}

	s.logger.Info("mode created",
		slog.String("id", mode.ID),
		slog.String("name", mode.Name),
	)
	return mode, nil
}

// Rename changes a mode's display name.
//
// An invalid name changes nothing: the mode as it was is returned together
// with the validation error, so a surface can put the old name back on
// screen. An unchanged name is a silent no-op.
func (s *ModeService) Rename(ctx context.Context, id, name string) (mode model.Mode, err error) {
	defer func() { s.record("rename", err) }()

	prior, err := s.find(ctx, id)
	if err != nil {
		return model.Mode{}, err
	}

	in := modeInput{Name: strings.TrimSpace(name)}
	if err := validateStruct("mode", in); err != nil {
		return prior, err
	}
	if in.Name == prior.Name {
		return prior, nil
	}

	mode, err = s.modes.RenameMode(ctx, id, in.Name)
	if err != nil {
		return prior, err
	}

	s.logger.Info("mode renamed",
		slog.String("id", id),
		slog.String("from", prior.Name),
		slog.String("to", mode.Name),
	)
	return mode, nil
}

func (s *ModeService) find(ctx context.Context, id string) (model.Mode, error) {
	modes, err := s.modes.ListModes(ctx)
	if err != nil {
		return model.Mode{}, fmt.Errorf("listing modes: %w", err)
	}
	for _, m := range modes {
		if m.ID == id {
			return m, nil
		}
	}
	return model.Mode{}, apperror.NotFound("mode", id)
}

// Delete removes a mode and all of its snippets, and returns the mode that is
// current afterwards. The last remaining mode cannot be deleted.
func (s *ModeService) Delete(ctx context.Context, id string) (current model.Mode, err error) {
	defer func() { s.record("delete", err) }()

	current, err = s.modes.DeleteMode(ctx, id)
	if err != nil {
		return model.Mode{}, err
	}

	s.logger.Info("mode deleted",
		slog.String("id", id),
		slog.String("current", current.ID),
	)
	return current, nil
}

// MoveUp swaps a mode with the one before it.
func (s *ModeService) MoveUp(ctx context.Context, id string) (outcome repository.Outcome, err error) {
	defer func() { s.record("move_up", err) }()
	return s.modes.MoveModeUp(ctx, id)
}

// MoveToTop moves a mode to the front of the list.
func (s *ModeService) MoveToTop(ctx context.Context, id string) (outcome repository.Outcome, err error) {
	defer func() { s.record("move_top", err) }()
	return s.modes.MoveModeToTop(ctx, id)
}

// Switch makes id the current mode. Open surfaces pick the change up the
// next time they read the store.
func (s *ModeService) Switch(ctx context.Context, id string) (mode model.Mode, err error) {
	defer func() { s.record("switch", err) }()

	mode, err = s.modes.SetCurrentMode(ctx, id)
	if err != nil {
		return model.Mode{}, err
	}
	s.logger.Info("mode switched", slog.String("id", mode.ID), slog.String("name", mode.Name))
	return mode, nil
}

// Cycle steps the current mode forward (direction > 0) or backward
// (direction < 0), wrapping around.
func (s *ModeService) Cycle(ctx context.Context, direction int) (mode model.Mode, err error) {
	defer func() { s.record("cycle", err) }()

	mode, err = s.modes.CycleMode(ctx, direction)
	if err != nil {
		return model.Mode{}, fmt.Errorf("cycling mode: %w", err)
	}
	return mode, nil
}
