package repository

import (
	"context"

	"atelier/internal/models"

	"gorm.io/gorm"
)

// CategoryRepository is the narrow surface the pipeline needs from the category catalog.
type CategoryRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Category, error)
	List(ctx context.Context) ([]*models.Category, error)
	// EnsureBySlug inserts the category unless its slug already exists.
	EnsureBySlug(ctx context.Context, category *models.Category) error
	IncrementPostCount(ctx context.Context, id uint) error
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, notFound(err, "Category", id)
	}
	return &category, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]*models.Category, error) {
	var categories []*models.Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error
	return categories, err
}

func (r *categoryRepository) EnsureBySlug(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Where("slug = ?", category.Slug).FirstOrCreate(category).Error
}

func (r *categoryRepository) IncrementPostCount(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).
		UpdateColumn("post_count", gorm.Expr("post_count + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Category", id)
	}
	return nil
}
