package database

import "time"

// Recording is one uploaded capture: a metadata row pointing at a blob file
// in the content directory, keyed by Filename. Rows are immutable after
// creation; AUTOINCREMENT keeps ids of deleted rows from being reissued.
type Recording struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	Filename  string    `gorm:"not null;uniqueIndex" json:"filename"`
	Size      int64     `gorm:"not null" json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}
