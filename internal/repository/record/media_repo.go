package record

import (
	"context"
	"errors"
	"time"

	"alihamza/deceptron/internal/domain"
	"alihamza/deceptron/internal/recordstore"
	"alihamza/deceptron/internal/repository"

	"github.com/google/uuid"
)

const mediaCollection = "media"

// recordMediaRepository implements repository.MediaRepository on top of
// the embedded record store.
type recordMediaRepository struct {
	store *recordstore.Store
}

// NewMediaRepository creates a media repository backed by the store.
func NewMediaRepository(store *recordstore.Store) repository.MediaRepository {
	return &recordMediaRepository{store: store}
}

// Create inserts new media metadata. ID and Timestamp are assigned here
// when the caller left them empty.
func (r *recordMediaRepository) Create(ctx context.Context, rec *domain.MediaRecord) error {
	if rec.Username == "" || rec.Filename == "" {
		return errors.New("media record requires username and filename")
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp == "" {
		rec.Timestamp = time.Now().Format(domain.TimestampLayout)
	}

	doc, err := toDocument(rec)
	if err != nil {
		return err
	}
	_, err = r.store.Insert(mediaCollection, doc)
	return err
}

// GetByOwner retrieves all media records belonging to a user.
func (r *recordMediaRepository) GetByOwner(ctx context.Context, username string) ([]domain.MediaRecord, error) {
	docs, err := r.store.Find(mediaCollection, recordstore.Eq("username", username))
	if err != nil {
		return nil, err
	}

	records := make([]domain.MediaRecord, 0, len(docs))
	for _, doc := range docs {
		var rec domain.MediaRecord
		if err := fromDocument(doc, &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Delete removes the record matching id and owner. The owner check rides
// in the predicate, so a record belonging to someone else reads as not
// found rather than as denied.
func (r *recordMediaRepository) Delete(ctx context.Context, id, username string) (*domain.MediaRecord, error) {
	removed, err := r.store.Remove(mediaCollection, recordstore.And(
		recordstore.Eq("id", id),
		recordstore.Eq("username", username),
	))
	if err != nil {
		return nil, err
	}
	if len(removed) == 0 {
		return nil, repository.ErrNotFound
	}

	var rec domain.MediaRecord
	if err := fromDocument(removed[0], &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
