package repository

import (
	"alihamza/deceptron/internal/domain"
	"context"
)

// Error constants for the repository layer.
var (
	ErrNotFound = RepositoryError("not found")
)

// RepositoryError helps distinguish repository errors.
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// AccountRepository defines the interface for interacting with account data.
// Implementations return accounts including the stored credential hash; the
// service layer decides what leaves the process.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	// GetByIdentity matches either the email or the username field.
	GetByIdentity(ctx context.Context, identity string) (*domain.Account, error)
	ExistsEmail(ctx context.Context, email string) (bool, error)
	ExistsUsername(ctx context.Context, username string) (bool, error)
	// Patch merges the given fields into the stored account document;
	// fields not present in the patch keep their stored values.
	Patch(ctx context.Context, username string, fields map[string]any) error
}

// MediaRepository defines the interface for interacting with media records.
type MediaRepository interface {
	// Create stores a new record, assigning ID and Timestamp when unset.
	Create(ctx context.Context, record *domain.MediaRecord) error
	GetByOwner(ctx context.Context, username string) ([]domain.MediaRecord, error)
	// Delete removes the record matching id and owner, returning the
	// removed record so the caller can dispose of the backing file.
	Delete(ctx context.Context, id, username string) (*domain.MediaRecord, error)
}
