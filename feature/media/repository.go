package media

import (
	"context"
	"errors"
	"time"

	"media-reconciler/core/database"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNoDatabase is returned by repository calls when no database is connected.
var ErrNoDatabase = errors.New("known-media database not configured")

// PageMedia records a file already shown on a page.
type PageMedia struct {
	ID        uint      `gorm:"primaryKey"`
	PageTitle string    `gorm:"column:page_title;size:255;not null;uniqueIndex:idx_page_file"`
	FileTitle string    `gorm:"column:file_title;size:255;not null;uniqueIndex:idx_page_file"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName implements gorm's tabler.
func (PageMedia) TableName() string {
	return "page_media"
}

// Repository is the known-media store: files a page already displays, which
// every search for that page excludes.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a repository. A nil db yields a repository whose
// lookups return ErrNoDatabase.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Available reports whether a database is connected.
func (r *Repository) Available() bool {
	return r != nil && r.db != nil
}

// Migrate creates the table if needed.
func (r *Repository) Migrate() error {
	if !r.Available() {
		return ErrNoDatabase
	}
	return r.db.AutoMigrate(&PageMedia{})
}

// CheckSchema verifies the columns the repository reads.
func (r *Repository) CheckSchema() error {
	if !r.Available() {
		return ErrNoDatabase
	}
	return database.RequireColumns(r.db, PageMedia{}.TableName(), "page_title", "file_title")
}

// KnownFor returns the normalized file titles recorded for a page.
func (r *Repository) KnownFor(ctx context.Context, pageTitle string) ([]string, error) {
	if !r.Available() {
		return nil, ErrNoDatabase
	}
	var files []string
	err := r.db.WithContext(ctx).
		Model(&PageMedia{}).
		Where("page_title = ?", pageTitle).
		Order("id").
		Pluck("file_title", &files).Error
	if err != nil {
		return nil, err
	}
	for i, f := range files {
		files[i] = NormalizeTitle(f)
	}
	return files, nil
}

// Add records files as shown on a page. Existing pairs are left alone.
func (r *Repository) Add(ctx context.Context, pageTitle string, files ...string) error {
	if !r.Available() {
		return ErrNoDatabase
	}
	if len(files) == 0 {
		return nil
	}
	rows := make([]PageMedia, 0, len(files))
	for _, f := range files {
		rows = append(rows, PageMedia{PageTitle: pageTitle, FileTitle: NormalizeTitle(f)})
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}
