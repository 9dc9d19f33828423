package delivery

import (
	"context"

	"github.com/sakif/snippet-picker/internal/model"
	"github.com/sakif/snippet-picker/internal/repository"
)

var _ PromptFlag = (*StoreFlag)(nil)

// StoreFlag keeps the "permission prompt shown" flag in the shared store, so
// every surface on the machine agrees it was already shown.
type StoreFlag struct {
	flags repository.FlagRepository
}

func NewStoreFlag(flags repository.FlagRepository) *StoreFlag {
	return &StoreFlag{flags: flags}
}

func (f *StoreFlag) Prompted(ctx context.Context) (bool, error) {
	return f.flags.Flag(ctx, model.KeyPermissionPrompted)
}

func (f *StoreFlag) MarkPrompted(ctx context.Context) error {
	return f.flags.SetFlag(ctx, model.KeyPermissionPrompted, true)
}
