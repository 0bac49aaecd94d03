package images

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/gallery-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/gallery-backend/pkg/errors"
)

// Repository reads and writes rows of the images table.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) conn(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return r.db
	}
	return r.db.WithContext(ctx)
}

// List returns every image, newest first.
func (r *Repository) List(ctx context.Context) ([]models.Image, error) {
	var rows []models.Image
	if err := r.conn(ctx).Order("id DESC").Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list images")
	}
	if rows == nil {
		rows = []models.Image{}
	}
	return rows, nil
}

// Create inserts one row and returns it with the generated id.
func (r *Repository) Create(ctx context.Context, title *string, imageURL string) (*models.Image, error) {
	row := &models.Image{Title: title, ImageURL: imageURL}
	if err := r.conn(ctx).Create(row).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "insert image")
	}
	return row, nil
}
