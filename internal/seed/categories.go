package seed

import (
	"context"
	"fmt"

	"atelier/internal/models"
	"atelier/internal/repository"
)

// Categories ensures every category in specs exists and returns them in
// order. Existing rows are left untouched, so the call is safe to repeat.
func Categories(ctx context.Context, store *repository.Store, specs []CategorySpec) ([]*models.Category, error) {
	out := make([]*models.Category, 0, len(specs))
	for _, spec := range specs {
		name := spec.Name
		if name == "" {
			name = spec.Slug
		}
		category := &models.Category{Name: name, Slug: spec.Slug}
		if err := store.Categories.EnsureBySlug(ctx, category); err != nil {
			return nil, fmt.Errorf("ensure category %s: %w", spec.Slug, err)
		}
		out = append(out, category)
	}
	return out, nil
}
