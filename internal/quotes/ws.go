package quotes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const pushInterval = 5 * time.Second

// QuoteWS pushes the latest quote for one symbol over a websocket. Clients
// pass ?symbol=; the provider chain's cache keeps the upstream load flat
// no matter how many clients watch the same symbol.
type QuoteWS struct {
	provider Provider
	origin   string
	upgrader websocket.Upgrader
}

func NewQuoteWS(provider Provider, origin string) *QuoteWS {
	return &QuoteWS{
		provider: provider,
		origin:   origin,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return allowOrigin(r, origin) }},
	}
}

type quoteMessage struct {
	Type      string `json:"type"`
	Quote     Quote  `json:"quote"`
	Timestamp int64  `json:"ts"`
}

type quoteErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func (h *QuoteWS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	if symbol == "" {
		http.Error(w, "symbol is required", http.StatusBadRequest)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pushInterval)
	defer ticker.Stop()
	push := func() bool {
		quote, err := h.provider.Current(r.Context(), symbol)
		if err != nil {
			return conn.WriteJSON(quoteErrorMessage{Type: "error", Error: "quote unavailable"}) == nil
		}
		return conn.WriteJSON(quoteMessage{Type: "quote", Quote: quote, Timestamp: time.Now().UTC().Unix()}) == nil
	}
	if !push() {
		return
	}
	for {
		select {
		case <-ticker.C:
			if !push() {
				return
			}
		case <-done:
			return
		}
	}
}

func allowOrigin(r *http.Request, origin string) bool {
	if origin == "*" {
		return true
	}
	return strings.EqualFold(r.Header.Get("Origin"), origin)
}
