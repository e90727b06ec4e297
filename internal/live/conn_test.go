package live_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nestars16/study-buddy/internal/live"
	"github.com/nestars16/study-buddy/internal/utils"
)

// newLiveServer stands up the websocket endpoint with a stub authenticated
// identity, bypassing the session middleware the real router uses.
func newLiveServer(t *testing.T, hub *live.Hub, allowedOrigins ...string) *httptest.Server {
	t.Helper()

	inner := live.Handler(hub, allowedOrigins)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := utils.WithAuthOutcome(r.Context(), utils.AuthOutcome{
			Kind:   utils.Authenticated,
			UserID: "tester",
		})
		inner(w, r.WithContext(ctx))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialDoc(t *testing.T, srv *httptest.Server, docID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?document_id=" + docID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return string(msg)
}

// waitForGroups polls until the hub reaches the wanted group count; both
// connection duties must have been cancelled for a group to disappear.
func waitForGroups(t *testing.T, hub *live.Hub, want int) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if hub.Groups() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("hub still has %d groups, wanted %d", hub.Groups(), want)
}

func TestEditorEditReachesViewer(t *testing.T) {
	hub := live.NewHub()
	srv := newLiveServer(t, hub)

	editor := dialDoc(t, srv, "doc-ws-1")
	viewer := dialDoc(t, srv, "doc-ws-1")

	if err := editor.WriteMessage(websocket.TextMessage, []byte("# Title")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got := readText(t, viewer)
	if !strings.Contains(got, "<h1>Title</h1>") {
		t.Errorf("viewer expected rendered h1, got: %q", got)
	}
}

// TestEditorDisconnectDoesNotBreakViewers closes one socket and checks that
// the rest of the group keeps streaming, then that closing everything
// releases the group and with it both duties of every connection.
func TestEditorDisconnectDoesNotBreakViewers(t *testing.T) {
	hub := live.NewHub()
	srv := newLiveServer(t, hub)

	editorA := dialDoc(t, srv, "doc-ws-2")
	viewer := dialDoc(t, srv, "doc-ws-2")
	editorC := dialDoc(t, srv, "doc-ws-2")

	editorA.Close()

	// Give the server a beat to reap A's duties, then keep editing from C.
	time.Sleep(50 * time.Millisecond)

	if err := editorC.WriteMessage(websocket.TextMessage, []byte("## Two")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got := readText(t, viewer)
	if !strings.Contains(got, "<h2>Two</h2>") {
		t.Errorf("viewer expected rendered h2 after A left, got: %q", got)
	}

	viewer.Close()
	editorC.Close()
	waitForGroups(t, hub, 0)
}

func TestSeparateDocumentsAreIsolated(t *testing.T) {
	hub := live.NewHub()
	srv := newLiveServer(t, hub)

	editor := dialDoc(t, srv, "doc-a")
	otherViewer := dialDoc(t, srv, "doc-b")

	if err := editor.WriteMessage(websocket.TextMessage, []byte("# secret")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	otherViewer.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, msg, err := otherViewer.ReadMessage(); err == nil {
		t.Errorf("viewer on another document received %q", msg)
	}
}

func TestHandlerRequiresDocumentID(t *testing.T) {
	hub := live.NewHub()
	srv := newLiveServer(t, hub)

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 without document_id, got %d", resp.StatusCode)
	}
}

// Browser upgrades follow the same origin allow-list as the CORS layer:
// unknown origins are refused before the socket exists, listed ones connect.
func TestUpgradeEnforcesOriginAllowList(t *testing.T) {
	hub := live.NewHub()
	srv := newLiveServer(t, hub, "https://app.example.com")

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?document_id=doc-origin"

	_, resp, err := websocket.DefaultDialer.Dial(url,
		http.Header{"Origin": []string{"https://evil.example.com"}})
	if err == nil {
		t.Fatal("expected the handshake to be refused for an unlisted origin")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 from the upgrader, got %+v", resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(url,
		http.Header{"Origin": []string{"https://app.example.com"}})
	if err != nil {
		t.Fatalf("allow-listed origin should connect: %v", err)
	}
	conn.Close()
}

// Without the session middleware in front, the handler must fail closed.
func TestHandlerWithoutResolverRejects(t *testing.T) {
	hub := live.NewHub()
	srv := httptest.NewServer(live.Handler(hub, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/?document_id=doc-x")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500 when middleware never ran, got %d", resp.StatusCode)
	}
}
