package store

import (
	"sort"

	"github.com/spec-kit/feedback-service/internal/domain"
	apperrors "github.com/spec-kit/feedback-service/pkg/util"
)

// CreateCategory adds a named classification bucket.
func (s *Store) CreateCategory(name, description string) (domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.categories {
		if existing.Name == name {
			return domain.Category{}, apperrors.NewConflict("category exists", map[string]any{"name": name})
		}
	}
	category := domain.Category{
		ID:          s.nextIDLocked(bucketCategories),
		Name:        name,
		Description: description,
		CreatedAt:   now(),
	}
	s.categories[category.ID] = category
	s.persistLocked()
	return category, nil
}

// ListCategories returns all categories ordered by id.
func (s *Store) ListCategories() []domain.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Category, 0, len(s.categories))
	for _, category := range s.categories {
		out = append(out, category)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetCategoryByName returns one category by its unique name.
func (s *Store) GetCategoryByName(name string) (domain.Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, category := range s.categories {
		if category.Name == name {
			return category, true
		}
	}
	return domain.Category{}, false
}

// DeleteCategory removes a category by id.
func (s *Store) DeleteCategory(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return apperrors.NewNotFound("category", map[string]any{"category_id": id})
	}
	delete(s.categories, id)
	s.persistLocked()
	return nil
}
