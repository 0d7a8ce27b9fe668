package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/clear/internal/model"
)

// CategoryAPI is the part of the remote client used by the category store.
type CategoryAPI interface {
	Categories(ctx context.Context) ([]model.Category, error)
	AddCategory(ctx context.Context, name string) error
	UpdateCategory(ctx context.Context, id, name string) error
	DeleteCategory(ctx context.Context, id string) error
}

// CategoryStore keeps the authoritative category list.
// Every mutation is followed by a full Fetch; the list is never empty.
type CategoryStore interface {
	// Fetch replaces the list with the backend's, falling back to the default category.
	Fetch(ctx context.Context) error
	// Add creates a category and refetches.
	Add(ctx context.Context, name string) error
	// Update renames a category and refetches.
	Update(ctx context.Context, id, name string) error
	// Delete removes a category and refetches.
	Delete(ctx context.Context, id string) error
	// Categories returns a copy of the current list.
	Categories() []model.Category
	// Busy reports whether any call is in flight.
	Busy() bool
	// Err returns the error of the latest applied fetch.
	Err() error
	// Default returns the backend's "Default" category, falling back to the synthesized one.
	Default() model.Category
}

type CategoryStoreImpl struct {
	api  CategoryAPI
	auth Authenticator
	log  *zap.Logger

	mu   sync.Mutex
	list []model.Category
	busy int
	err  error
	seq  uint64
}

var _ CategoryStore = (*CategoryStoreImpl)(nil)

// NewCategoryStore constructs a store holding only the default category.
func NewCategoryStore(api CategoryAPI, auth Authenticator, log *zap.Logger) *CategoryStoreImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &CategoryStoreImpl{
		api:  api,
		auth: auth,
		log:  log,
		list: []model.Category{model.DefaultCategory},
	}
}

// Fetch is a no-op while Anonymous. A response superseded by a later Fetch is discarded.
func (s *CategoryStoreImpl) Fetch(ctx context.Context) error {
	if !s.auth.IsAuthenticated() {
		return nil
	}
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.busy++
	s.mu.Unlock()

	cats, err := s.api.Categories(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy--
	if seq != s.seq {
		s.log.Debug("discard stale categories", zap.Uint64("seq", seq), zap.Uint64("latest", s.seq))
		return err
	}
	s.err = err
	if err != nil || len(cats) == 0 {
		s.list = []model.Category{model.DefaultCategory}
		return err
	}
	s.list = cats
	return nil
}

func (s *CategoryStoreImpl) Add(ctx context.Context, name string) error {
	return s.mutate(ctx, func() error { return s.api.AddCategory(ctx, name) })
}

func (s *CategoryStoreImpl) Update(ctx context.Context, id, name string) error {
	return s.mutate(ctx, func() error { return s.api.UpdateCategory(ctx, id, name) })
}

func (s *CategoryStoreImpl) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, func() error { return s.api.DeleteCategory(ctx, id) })
}

func (s *CategoryStoreImpl) mutate(ctx context.Context, call func() error) error {
	if !s.auth.IsAuthenticated() {
		return nil
	}
	s.mu.Lock()
	s.busy++
	s.mu.Unlock()

	err := call()

	s.mu.Lock()
	s.busy--
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Fetch(ctx)
}

func (s *CategoryStoreImpl) Categories() []model.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Category(nil), s.list...)
}

func (s *CategoryStoreImpl) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy > 0
}

func (s *CategoryStoreImpl) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Default returns the listed category named like the fallback, or the fallback itself.
func (s *CategoryStoreImpl) Default() model.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.list {
		if c.CategoryName == model.DefaultCategory.CategoryName {
			return c
		}
	}
	return model.DefaultCategory
}
