package http

import "net/http"

// NewRouter mounts the health check, the gameplay websocket and the JSON API.
func NewRouter(ws *WSHandler, api *APIHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /ws", ws.ServeWS)
	api.Register(mux)
	return mux
}
