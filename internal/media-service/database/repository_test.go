package database

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func setup(t *testing.T) *Repository {
	t.Helper()
	db, err := NewDb(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to connect database: %s", err)
	}
	return NewRepository(db)
}

func TestRepository_Insert(t *testing.T) {
	repo := setup(t)

	tests := []struct {
		title    string
		filename string
		size     int64
	}{
		{"first clip", "recording-1.webm", 42},
		{"second clip", "recording-2.webm", 1 << 20},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			rec, err := repo.Insert(tt.title, tt.filename, tt.size)
			if err != nil {
				t.Fatalf("Insert() error = %v", err)
			}
			assert.NotZero(t, rec.ID)
			assert.False(t, rec.CreatedAt.IsZero())

			t.Run("check saved recording", func(t *testing.T) {
				saved, err := repo.GetByID(rec.ID)
				if err != nil {
					t.Fatalf("can't get saved recording: %s", err)
				}
				if diff := cmp.Diff(rec, saved, cmpopts.EquateApproxTime(time.Second)); diff != "" {
					t.Errorf("GetByID():\n%s", diff)
				}
			})
		})
	}
}

func TestRepository_Insert_duplicateFilename(t *testing.T) {
	repo := setup(t)

	if _, err := repo.Insert("one", "recording-dup.webm", 1); err != nil {
		t.Fatalf("can't prepare test: %s", err)
	}
	_, err := repo.Insert("two", "recording-dup.webm", 2)
	assert.Error(t, err)
}

func TestRepository_ListAll(t *testing.T) {
	repo := setup(t)

	recordings, err := repo.ListAll()
	assert.NoError(t, err)
	assert.Empty(t, recordings)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := &Recording{
			Title:     fmt.Sprintf("clip %d", i),
			Filename:  fmt.Sprintf("recording-list-%d.webm", i),
			Size:      int64(i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.db.Create(rec).Error; err != nil {
			t.Fatalf("can't prepare test: %s", err)
		}
	}

	recordings, err = repo.ListAll()
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	titles := make([]string, 0, len(recordings))
	for _, rec := range recordings {
		titles = append(titles, rec.Title)
	}
	if diff := cmp.Diff([]string{"clip 2", "clip 1", "clip 0"}, titles); diff != "" {
		t.Errorf("ListAll() order:\n%s", diff)
	}
}

func TestRepository_GetByID_missing(t *testing.T) {
	repo := setup(t)

	_, err := repo.GetByID(999999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_DeleteByID(t *testing.T) {
	repo := setup(t)

	rec, err := repo.Insert("to delete", "recording-del.webm", 10)
	if err != nil {
		t.Fatalf("can't prepare test: %s", err)
	}

	affected, err := repo.DeleteByID(rec.ID)
	assert.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	t.Run("second delete affects nothing", func(t *testing.T) {
		affected, err := repo.DeleteByID(rec.ID)
		assert.NoError(t, err)
		assert.EqualValues(t, 0, affected)
	})

	t.Run("row is gone", func(t *testing.T) {
		_, err := repo.GetByID(rec.ID)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestRepository_DeleteByID_idNotReused(t *testing.T) {
	repo := setup(t)

	first, err := repo.Insert("first", "recording-reuse-1.webm", 1)
	if err != nil {
		t.Fatalf("can't prepare test: %s", err)
	}
	if _, err := repo.DeleteByID(first.ID); err != nil {
		t.Fatalf("can't prepare test: %s", err)
	}

	second, err := repo.Insert("second", "recording-reuse-2.webm", 2)
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	assert.Greater(t, second.ID, first.ID)
}
