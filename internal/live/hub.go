package live

import (
	"sync"
	"sync/atomic"
)

// subscriberBuffer bounds how far a slow viewer can fall behind before
// renders start getting dropped for it. Publishing never blocks on a
// subscriber.
const subscriberBuffer = 16

// Hub owns one EditSession per document that currently has sockets attached.
// Groups appear when the first connection joins and vanish when the last one
// leaves; nothing here is durable.
type Hub struct {
	mu     sync.Mutex
	groups map[string]*EditSession
}

// EditSession is the ephemeral shared state of one editing group: the raw
// buffer last written by any editor, its rendered form, and the fan-out set.
type EditSession struct {
	mu     sync.Mutex
	raw    string
	latest string
	subs   map[*Subscription]struct{}
}

// Subscription is one viewer's bounded feed of rendered HTML.
type Subscription struct {
	ch      chan string
	dropped atomic.Uint64
}

// HTML is the stream of rendered previews, in publish order. It is closed
// when the subscription leaves its group.
func (s *Subscription) HTML() <-chan string {
	return s.ch
}

// Dropped reports how many renders were discarded because this subscriber
// wasn't keeping up.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

func NewHub() *Hub {
	return &Hub{groups: make(map[string]*EditSession)}
}

// Join subscribes to the document's editing group, creating the group if
// this is the first connection. A late joiner immediately receives the
// current render so its preview isn't blank until the next edit.
//
// The subscriber insert happens while h.mu is still held: a concurrent
// last-subscriber Leave must not unmap the group between the lookup and
// the insert, or the joiner would be fanning out into an orphan.
func (h *Hub) Join(docID string) *Subscription {
	sub := &Subscription{ch: make(chan string, subscriberBuffer)}

	h.mu.Lock()
	group, ok := h.groups[docID]
	if !ok {
		group = &EditSession{subs: make(map[*Subscription]struct{})}
		h.groups[docID] = group
	}
	group.mu.Lock()
	group.subs[sub] = struct{}{}
	if group.latest != "" {
		sub.ch <- group.latest
	}
	group.mu.Unlock()
	h.mu.Unlock()

	return sub
}

// Leave removes the subscription and tears the group down when it was the
// last one. The subscription's channel is closed so a draining reader ends.
func (h *Hub) Leave(docID string, sub *Subscription) {
	h.mu.Lock()
	group, ok := h.groups[docID]
	h.mu.Unlock()
	if !ok {
		return
	}

	group.mu.Lock()
	if _, member := group.subs[sub]; !member {
		group.mu.Unlock()
		return
	}
	delete(group.subs, sub)
	close(sub.ch)
	empty := len(group.subs) == 0
	group.mu.Unlock()

	if empty {
		h.mu.Lock()
		if g, ok := h.groups[docID]; ok && g == group {
			g.mu.Lock()
			if len(g.subs) == 0 {
				delete(h.groups, docID)
			}
			g.mu.Unlock()
		}
		h.mu.Unlock()
	}
}

// Publish records the newest raw buffer and fans the rendered HTML out to
// every subscriber. A full subscriber buffer means that subscriber lost this
// render (counted, never blocking); everyone else still gets it. Two editors
// publishing concurrently resolve as last write wins.
func (h *Hub) Publish(docID string, raw, html string) {
	h.mu.Lock()
	group, ok := h.groups[docID]
	h.mu.Unlock()
	if !ok {
		return
	}

	group.mu.Lock()
	defer group.mu.Unlock()

	group.raw = raw
	group.latest = html

	for sub := range group.subs {
		select {
		case sub.ch <- html:
		default:
			sub.dropped.Add(1)
		}
	}
}

// Groups reports how many editing groups are live. Used by tests and the
// health endpoint.
func (h *Hub) Groups() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.groups)
}
