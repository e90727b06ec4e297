package documents

import (
	"github.com/lib/pq"
)

// Document is the durable home of a markdown buffer. Live edits stay in
// memory; this row only changes on an explicit save.
type Document struct {
	ID      string         `gorm:"primaryKey" json:"id"`
	UserID  string         `gorm:"not null;index" json:"-"`
	Title   string         `gorm:"not null" json:"title"`
	Content string         `json:"content"`
	Tags    pq.StringArray `gorm:"type:text[]" json:"tags"`
}

func (Document) TableName() string { return "app_documents.documents" }
