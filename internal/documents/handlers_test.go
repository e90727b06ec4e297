package documents_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/nestars16/study-buddy/internal/db"
	"github.com/nestars16/study-buddy/internal/documents"
	"github.com/nestars16/study-buddy/internal/pdf"
	"github.com/nestars16/study-buddy/internal/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}

	gdb, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("gorm open: %v", err)
	}

	old := db.DB
	db.DB = gdb
	t.Cleanup(func() {
		db.DB = old
		sqlDB.Close()
	})

	return mock
}

// asUser attaches an authenticated outcome, standing in for the session
// middleware.
func asUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(utils.WithAuthOutcome(req.Context(), utils.AuthOutcome{
		Kind:   utils.Authenticated,
		UserID: userID,
	}))
}

func TestCreateDocument(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "app_documents"\."documents"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req := asUser(httptest.NewRequest(http.MethodPost, "/create_document",
		strings.NewReader(`{"title":"Notes"}`)), "user-1")
	rec := httptest.NewRecorder()
	documents.CreateDocumentHandler(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "document_id") {
		t.Errorf("expected a document_id in the response, got %q", rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateDocument_RequiresTitle(t *testing.T) {
	req := asUser(httptest.NewRequest(http.MethodPost, "/create_document",
		strings.NewReader(`{"title":"   "}`)), "user-1")
	rec := httptest.NewRecorder()
	documents.CreateDocumentHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSave_UnknownDocument(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "app_documents"\."documents" SET "content"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	req := asUser(httptest.NewRequest(http.MethodPost, "/save",
		strings.NewReader(`{"document_id":"nope","text":"# hi"}`)), "user-1")
	rec := httptest.NewRecorder()
	documents.SaveHandler(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for an unowned id, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("a 204 must carry no body, got %q", rec.Body.String())
	}
}

func TestDeleteDocument_Unknown(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "app_documents"\."documents"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	req := asUser(httptest.NewRequest(http.MethodPost,
		"/delete_document?document_id=nope", nil), "user-1")
	rec := httptest.NewRecorder()
	documents.DeleteDocumentHandler(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for an unowned id, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("a 204 must carry no body, got %q", rec.Body.String())
	}
}

func TestFetchContent(t *testing.T) {
	mock := newMockDB(t)

	rows := sqlmock.NewRows([]string{"id", "user_id", "title", "content", "tags"}).
		AddRow("doc-1", "user-1", "Notes", "# saved", nil)
	mock.ExpectQuery(`SELECT (.+) FROM "app_documents"\."documents" WHERE (.*)id = \$1 AND user_id = \$2`).
		WillReturnRows(rows)

	req := asUser(httptest.NewRequest(http.MethodGet,
		"/fetch_content?document_id=doc-1", nil), "user-1")
	rec := httptest.NewRecorder()
	documents.FetchContentHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "# saved") {
		t.Errorf("expected saved content, got %q", rec.Body.String())
	}
}

func TestFetchContent_NotOwned(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectQuery(`SELECT (.+) FROM "app_documents"\."documents" WHERE (.*)id = \$1 AND user_id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "content", "tags"}))

	req := asUser(httptest.NewRequest(http.MethodGet,
		"/fetch_content?document_id=somebody-elses", nil), "user-1")
	rec := httptest.NewRecorder()
	documents.FetchContentHandler(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestFetchDocuments(t *testing.T) {
	mock := newMockDB(t)

	rows := sqlmock.NewRows([]string{"id", "title", "tags"}).
		AddRow("doc-1", "Notes", nil).
		AddRow("doc-2", "Ideas", nil)
	mock.ExpectQuery(`SELECT (.+) FROM "app_documents"\."documents" WHERE (.*)user_id = \$1`).
		WillReturnRows(rows)

	req := asUser(httptest.NewRequest(http.MethodGet, "/fetch_documents", nil), "user-1")
	rec := httptest.NewRecorder()
	documents.FetchDocumentsHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Notes") || !strings.Contains(body, "Ideas") {
		t.Errorf("expected both documents, got %q", body)
	}
}

func TestDeleteDocument(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "app_documents"\."documents"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req := asUser(httptest.NewRequest(http.MethodPost,
		"/delete_document?document_id=doc-1", nil), "user-1")
	rec := httptest.NewRecorder()
	documents.DeleteDocumentHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

// Handlers fail closed when the session middleware never ran.
func TestHandlersWithoutResolverReject(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/fetch_documents", nil)
	rec := httptest.NewRecorder()
	documents.FetchDocumentsHandler(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without middleware, got %d", rec.Code)
	}
}

func TestDownload_StreamsPDF(t *testing.T) {
	converter := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.7 fake"))
	}))
	defer converter.Close()

	handler := documents.DownloadHandler(pdf.NewClient(converter.URL, "test-key"))

	req := asUser(httptest.NewRequest(http.MethodPost, "/download",
		strings.NewReader(`{"html":"<h1>Title</h1>","css":"dark"}`)), "user-1")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "application/pdf" {
		t.Errorf("expected application/pdf, got %q", got)
	}
	if !strings.HasPrefix(rec.Body.String(), "%PDF") {
		t.Errorf("expected the converter's bytes, got %q", rec.Body.String())
	}
}

func TestDownload_ConverterFailure(t *testing.T) {
	converter := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded for key sk-secret", http.StatusPaymentRequired)
	}))
	defer converter.Close()

	handler := documents.DownloadHandler(pdf.NewClient(converter.URL, "test-key"))

	req := asUser(httptest.NewRequest(http.MethodPost, "/download",
		strings.NewReader(`{"html":"<p>x</p>","css":"light"}`)), "user-1")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	// Converter detail stays in the logs.
	if strings.Contains(rec.Body.String(), "sk-secret") {
		t.Errorf("converter detail leaked: %q", rec.Body.String())
	}
}
