package documents

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nestars16/study-buddy/internal/auth"
	"github.com/nestars16/study-buddy/internal/live"
	"github.com/nestars16/study-buddy/internal/middleware"
	"github.com/nestars16/study-buddy/internal/pdf"
)

// SetupRoutes mounts the document endpoints, all behind the session
// resolver. Every handler gates itself through utils.RequireUser. The
// websocket upgrade honors the same origin allow-list as the CORS layer.
func SetupRoutes(hub *live.Hub, pdfClient *pdf.Client, allowedOrigins []string) http.Handler {
	sessionFetcher := auth.SessionInfo{}

	r := chi.NewRouter()
	r.Use(middleware.SessionMiddleware(sessionFetcher))

	r.Post("/create_document", CreateDocumentHandler)
	r.Post("/save", SaveHandler)
	r.Get("/fetch_documents", FetchDocumentsHandler)
	r.Get("/fetch_content", FetchContentHandler)
	r.Post("/delete_document", DeleteDocumentHandler)
	r.Post("/download", DownloadHandler(pdfClient))
	r.Get("/refresh", live.Handler(hub, allowedOrigins))

	return r
}
