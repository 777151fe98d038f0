package router

import (
	"net/http"

	"devsync/channel"
	"devsync/middleware"
)

// Setup builds the relay's HTTP surface: the authenticated websocket
// endpoint plus a health probe.
func Setup(relay *channel.Relay, secret []byte) http.Handler {
	mux := http.NewServeMux()
	auth := middleware.Auth(secret)

	wsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(middleware.UserIDKey).(string)
		relay.ServeWS(w, r, userID)
	})
	mux.Handle("/ws", auth(wsHandler))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return mux
}
