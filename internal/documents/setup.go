package documents

import (
	"log"

	"github.com/nestars16/study-buddy/internal/db"
)

func Init() {
	if err := db.EnsureSchema(db.DB, "app_documents"); err != nil {
		log.Fatal("Failed to ensure schema app_documents: ", err)
	}

	if err := db.DB.AutoMigrate(&Document{}); err != nil {
		log.Fatal("Failed to auto-migrate tables", err)
	}
}
