package documents

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/nestars16/study-buddy/internal/db"
	"github.com/nestars16/study-buddy/internal/pdf"
	"github.com/nestars16/study-buddy/internal/utils"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

func CreateDocumentHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := utils.RequireUser(w, r)
	if !ok {
		return
	}

	var payload struct {
		Title string   `json:"title"`
		Tags  []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid Request Format", http.StatusBadRequest)
		return
	}

	title := norm.NFC.String(strings.TrimSpace(payload.Title))
	if title == "" {
		http.Error(w, "Request doesn't contain all of the necessary fields", http.StatusBadRequest)
		return
	}

	doc := Document{
		ID:     uuid.New().String(),
		UserID: user.UserID,
		Title:  title,
		Tags:   pq.StringArray(payload.Tags),
	}
	if err := db.DB.Create(&doc).Error; err != nil {
		log.Printf("document create failed: %v", err)
		http.Error(w, "Failed to create document", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"document_id": doc.ID})
}

func SaveHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := utils.RequireUser(w, r)
	if !ok {
		return
	}

	var payload struct {
		DocumentID string `json:"document_id"`
		Text       string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid Request Format", http.StatusBadRequest)
		return
	}
	if payload.DocumentID == "" {
		http.Error(w, "Request doesn't contain all of the necessary fields", http.StatusBadRequest)
		return
	}

	result := db.DB.Model(&Document{}).
		Where("id = ? AND user_id = ?", payload.DocumentID, user.UserID).
		Update("content", payload.Text)
	if result.Error != nil {
		log.Printf("document save failed: %v", result.Error)
		http.Error(w, "Failed to save document", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		// Nothing owned by the caller matched; empty 204, same as a fetch.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func FetchDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := utils.RequireUser(w, r)
	if !ok {
		return
	}

	var docs []Document
	err := db.DB.Select("id", "title", "tags").
		Find(&docs, "user_id = ?", user.UserID).Error
	if err != nil {
		log.Printf("document list failed: %v", err)
		http.Error(w, "Failed to fetch documents", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(docs); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func FetchContentHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := utils.RequireUser(w, r)
	if !ok {
		return
	}

	docID := r.URL.Query().Get("document_id")
	if docID == "" {
		http.Error(w, "document_id is required", http.StatusBadRequest)
		return
	}

	var doc Document
	err := db.DB.First(&doc, "id = ? AND user_id = ?", docID, user.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Matches the editor's expectation: an id that resolves to nothing
		// the caller owns yields an empty 204, not a 404.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		log.Printf("document fetch failed: %v", err)
		http.Error(w, "Failed to fetch document", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"content": doc.Content})
}

func DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := utils.RequireUser(w, r)
	if !ok {
		return
	}

	docID := r.URL.Query().Get("document_id")
	if docID == "" {
		http.Error(w, "document_id is required", http.StatusBadRequest)
		return
	}

	result := db.DB.Where("id = ? AND user_id = ?", docID, user.UserID).Delete(&Document{})
	if result.Error != nil {
		log.Printf("document delete failed: %v", result.Error)
		http.Error(w, "Failed to delete document", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// DownloadHandler forwards the rendered document to the external PDF
// converter and streams the result back as an attachment.
func DownloadHandler(client *pdf.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := utils.RequireUser(w, r); !ok {
			return
		}

		var payload struct {
			HTML string `json:"html"`
			CSS  string `json:"css"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "Invalid Request Format", http.StatusBadRequest)
			return
		}

		body, err := client.Convert(r.Context(),
			pdf.WrapDocument(payload.HTML),
			pdf.StylesheetFor(payload.CSS),
		)
		if err != nil {
			// Converter details go to the log, not the client.
			log.Printf("pdf conversion failed: %v", err)
			http.Error(w, "Error performing conversion", http.StatusBadGateway)
			return
		}
		defer body.Close()

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", "attachment; filename=StudyBuddyDownload.pdf")
		if _, err := io.Copy(w, body); err != nil {
			log.Printf("pdf stream interrupted: %v", err)
		}
	}
}
