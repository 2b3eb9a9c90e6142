package server

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/abhijaysinghthakur/plant-disease-detection/internal/config"
	"github.com/abhijaysinghthakur/plant-disease-detection/internal/handlers"
)

// Server owns the route table. It is constructed explicitly from config
// instead of registering handlers on the package-global mux.
type Server struct {
	cfg    config.Config
	router *mux.Router
}

func New(cfg config.Config, h *handlers.Handler) *Server {
	r := mux.NewRouter()
	r.Use(requestLogger)
	r.Use(corsMiddleware(cfg.AllowedOrigins))

	r.HandleFunc("/", h.Index).Methods(http.MethodGet, http.MethodPost, http.MethodOptions)
	r.HandleFunc("/predict", h.Predict).Methods(http.MethodGet, http.MethodPost, http.MethodOptions)
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet, http.MethodOptions)
	r.PathPrefix("/static/").Handler(
		http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.UploadDir))))

	return &Server{cfg: cfg, router: r}
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) ListenAndServe() error {
	log.Printf("Server starting on port %s", s.cfg.Port)
	return http.ListenAndServe(":"+s.cfg.Port, s.router)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware answers preflights and stamps responses for origins on
// the allow-list. An empty list or a "*" entry allows everyone.
func corsMiddleware(allowedOrigins []string) mux.MiddlewareFunc {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
