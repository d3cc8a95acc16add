package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/domain"
	"github.com/spec-kit/feedback-service/internal/store"
	apperrors "github.com/spec-kit/feedback-service/pkg/util"
)

// CategoryService manages the classification buckets that double as
// departments for routing.
type CategoryService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewCategoryService creates the service.
func NewCategoryService(s *store.Store, logger *zap.Logger) *CategoryService {
	return &CategoryService{store: s, logger: logger}
}

// List returns all categories ordered by id.
func (c *CategoryService) List(ctx context.Context) []domain.Category {
	return c.store.ListCategories()
}

// Create adds a named category.
func (c *CategoryService) Create(ctx context.Context, actorID int64, name, description string) (domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Category{}, apperrors.NewValidationError("category name required", nil)
	}
	category, err := c.store.CreateCategory(name, strings.TrimSpace(description))
	if err != nil {
		return domain.Category{}, err
	}
	c.store.LogAction(store.LogActionInput{
		UserID:     actorID,
		Action:     "category_created",
		EntityType: "category",
		EntityID:   &category.ID,
		Details:    map[string]string{"name": category.Name},
	})
	return category, nil
}

// Delete removes a category by name. Categories still referenced by
// accounts or complaints are kept.
func (c *CategoryService) Delete(ctx context.Context, actorID int64, name string) error {
	category, found := c.store.GetCategoryByName(name)
	if !found {
		return apperrors.NewNotFound("category", map[string]any{"name": name})
	}

	assigned := 0
	for _, user := range c.store.ListUsers(nil) {
		if user.Department != nil && *user.Department == name {
			assigned++
		}
	}
	if assigned > 0 {
		return apperrors.NewConflict(
			fmt.Sprintf("cannot delete category, %d user(s) still assigned", assigned),
			map[string]any{"name": name})
	}

	referenced := 0
	for _, complaint := range c.store.ListComplaints() {
		if complaint.Category == name {
			referenced++
		}
	}
	if referenced > 0 {
		return apperrors.NewConflict(
			fmt.Sprintf("cannot delete category, %d complaint(s) still reference it", referenced),
			map[string]any{"name": name})
	}

	if err := c.store.DeleteCategory(category.ID); err != nil {
		return err
	}
	c.store.LogAction(store.LogActionInput{
		UserID:     actorID,
		Action:     "category_deleted",
		EntityType: "category",
		EntityID:   &category.ID,
		Details:    map[string]string{"name": name},
	})
	return nil
}
