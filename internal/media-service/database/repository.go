package database

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(title, filename string, size int64) (*Recording, error) {
	rec := &Recording{
		Title:    title,
		Filename: filename,
		Size:     size,
	}
	return rec, r.db.Create(rec).Error
}

func (r *Repository) ListAll() ([]*Recording, error) {
	res := make([]*Recording, 0)
	tx := r.db.
		Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true}).
		Find(&res)
	return res, tx.Error
}

func (r *Repository) GetByID(id int64) (*Recording, error) {
	rec := &Recording{}
	return rec, r.db.First(rec, id).Error
}

// DeleteByID reports how many rows went away so the caller can tell a
// successful delete from a lost race on the same id.
func (r *Repository) DeleteByID(id int64) (int64, error) {
	tx := r.db.Delete(&Recording{}, id)
	return tx.RowsAffected, tx.Error
}
