package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/tahcohcat/stride/internal/auth"
	"github.com/tahcohcat/stride/internal/websocket"
)

// NewRouter wires the public login routes, the gated API under /api/v1 and the websocket
// endpoint, wrapped in CORS for the configured origins.
func NewRouter(h *Handler, gate *auth.Gate, hub *websocket.Hub, allowedOrigins []string) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/login", gate.LoginHandler).Methods("POST")
	r.HandleFunc("/logout", gate.LogoutHandler).Methods("POST")
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(gate.Middleware)

	h.RegisterRoutes(authRouter.PathPrefix("/api/v1").Subrouter())
	if hub != nil {
		hub.RegisterRoutes(authRouter)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}
