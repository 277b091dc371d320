package record

import (
	"context"
	"errors"

	"alihamza/deceptron/internal/domain"
	"alihamza/deceptron/internal/recordstore"
	"alihamza/deceptron/internal/repository"
)

const accountCollection = "accounts"

// The credential hash travels under this document key. domain.Account
// tags the field `json:"-"` so it can never leak through a projection;
// the repository moves it in and out of the document by hand.
const passwordField = "password"

// recordAccountRepository implements repository.AccountRepository on top
// of the embedded record store.
type recordAccountRepository struct {
	store *recordstore.Store
}

// NewAccountRepository creates an account repository backed by the store.
func NewAccountRepository(store *recordstore.Store) repository.AccountRepository {
	return &recordAccountRepository{store: store}
}

// Create inserts a new account. Uniqueness of username and email is the
// service layer's responsibility; the store performs no validation.
func (r *recordAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	if account.Username == "" || account.Email == "" || account.Password == "" {
		return errors.New("account username, email and credential are required")
	}

	doc, err := toDocument(account)
	if err != nil {
		return err
	}
	doc[passwordField] = account.Password

	_, err = r.store.Insert(accountCollection, doc)
	return err
}

// GetByUsername retrieves an account by its username.
func (r *recordAccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.getOne(recordstore.Eq("username", username))
}

// GetByIdentity retrieves an account whose email or username equals the
// given identity string.
func (r *recordAccountRepository) GetByIdentity(ctx context.Context, identity string) (*domain.Account, error) {
	return r.getOne(recordstore.Or(
		recordstore.Eq("email", identity),
		recordstore.Eq("username", identity),
	))
}

// ExistsEmail reports whether any account holds the given email.
func (r *recordAccountRepository) ExistsEmail(ctx context.Context, email string) (bool, error) {
	docs, err := r.store.Find(accountCollection, recordstore.Eq("email", email))
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}

// ExistsUsername reports whether any account holds the given username.
func (r *recordAccountRepository) ExistsUsername(ctx context.Context, username string) (bool, error) {
	docs, err := r.store.Find(accountCollection, recordstore.Eq("username", username))
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}

// Patch merges the given fields into the stored account document.
func (r *recordAccountRepository) Patch(ctx context.Context, username string, fields map[string]any) error {
	matched, err := r.store.Update(accountCollection, recordstore.Document(fields), recordstore.Eq("username", username))
	if err != nil {
		return err
	}
	if matched == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *recordAccountRepository) getOne(pred recordstore.Predicate) (*domain.Account, error) {
	docs, err := r.store.Find(accountCollection, pred)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, repository.ErrNotFound
	}
	// Signup-time uniqueness guarantees at most one match; take the first.
	doc := docs[0]

	var account domain.Account
	if err := fromDocument(doc, &account); err != nil {
		return nil, err
	}
	if hash, ok := doc[passwordField].(string); ok {
		account.Password = hash
	}
	return &account, nil
}
