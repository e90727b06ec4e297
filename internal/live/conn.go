package live

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nestars16/study-buddy/internal/markdown"
	"github.com/nestars16/study-buddy/internal/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20 // 1MB of markdown is plenty
)

// checkOrigin accepts same-origin requests, non-browser clients that send no
// Origin header, and browsers coming from an allow-listed origin. Same exact
// matching as the CORS layer.
func checkOrigin(allowedOrigins []string) func(*http.Request) bool {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

// Handler upgrades an authenticated request into a live-render connection
// for the document named in the query string.
func Handler(hub *Hub, allowedOrigins []string) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin(allowedOrigins),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := utils.RequireUser(w, r); !ok {
			return
		}

		docID := r.URL.Query().Get("document_id")
		if docID == "" {
			http.Error(w, "document_id is required", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the error response.
			log.Printf("websocket upgrade failed: %v", err)
			return
		}

		serve(conn, hub, docID)
	}
}

// serve runs the two connection duties and races them: whichever ends first
// (peer gone, read error, write error) cancels the shared context, which
// closes the socket and thereby unblocks the other duty. Both goroutines are
// guaranteed to be gone before the group membership is released.
func serve(conn *websocket.Conn, hub *Hub, docID string) {
	sub := hub.Join(docID)
	ctx, cancel := context.WithCancel(context.Background())

	readDone := make(chan struct{})
	writeDone := make(chan struct{})

	go func() {
		defer close(readDone)
		defer cancel()
		readPump(conn, hub, docID)
	}()

	go func() {
		defer close(writeDone)
		defer cancel()
		writePump(ctx, conn, sub)
	}()

	<-ctx.Done()
	conn.Close() // unblocks a readPump parked in ReadMessage
	<-readDone
	<-writeDone
	hub.Leave(docID, sub)
}

// readPump is the receive duty: raw markdown in, rendered HTML published to
// the group. It exits on the first read error, including the one provoked by
// serve closing the connection.
func readPump(conn *websocket.Conn, hub *Hub, docID string) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		html, err := markdown.Render(string(msg))
		if err != nil {
			log.Printf("render failed for document %s: %v", docID, err)
			continue
		}
		hub.Publish(docID, string(msg), html)
	}
}

// writePump is the send duty: rendered HTML from the subscription out to the
// peer, plus keepalive pings so a silent-but-dead peer gets noticed.
func writePump(ctx context.Context, conn *websocket.Conn, sub *Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case html, ok := <-sub.HTML():
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(html)); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
