// Package http exposes the PlayerHub API over chi.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/playerhub/internal/common"
	"github.com/dmitrijs2005/playerhub/internal/logging"
	"github.com/dmitrijs2005/playerhub/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	auth     *services.AuthService
	guard    *services.AccessGuard
	devices  *services.DeviceService
	content  *services.ContentService
	commands *services.CommandService
	gatherer prometheus.Gatherer
	log      logging.Logger
}

// Deps bundles the services behind the API. A nil Gatherer serves the
// default Prometheus registry.
type Deps struct {
	Auth     *services.AuthService
	Guard    *services.AccessGuard
	Devices  *services.DeviceService
	Content  *services.ContentService
	Commands *services.CommandService
	Gatherer prometheus.Gatherer
}

func NewServer(d Deps, log logging.Logger) *Server {
	return &Server{
		auth:     d.Auth,
		guard:    d.Guard,
		devices:  d.Devices,
		content:  d.Content,
		commands: d.Commands,
		gatherer: d.Gatherer,
		log:      log.With("module", "http"),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", s.metricsHandler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/lookup", s.handleLookup)
		r.Post("/send-otp", s.handleSendCode)
		r.Post("/verify-otp", s.handleVerifyCode)
		r.Post("/set-pin", s.handleSetPin)
		r.Post("/login", s.handleLogin)
	})

	r.Route("/devices", func(r chi.Router) {
		// Device bootstrap runs before any user session exists.
		r.Post("/announce", s.handleAnnounce)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.handleListDevices)
			r.Post("/claim", s.handleClaim)

			r.Route("/{deviceId}", func(r chi.Router) {
				r.Patch("/", s.handleRename)
				r.Delete("/", s.handleRelease)
				r.Put("/dispatch", s.handleRegisterDispatch)

				r.Get("/share", s.handleListMembers)
				r.Post("/share", s.handleShare)
				r.Delete("/share/{email}", s.handleUnshare)

				r.Get("/content", s.handleListContent)
				r.Post("/content", s.handlePostContent)

				r.Post("/commands/{command}", s.handleCommand)
			})
		})
	})

	return r
}

func (s *Server) metricsHandler() http.Handler {
	if s.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})
}

type principalKey struct{}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get(common.AuthorizationHeaderName))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}

		p, err := s.guard.Authenticate(token)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), principalKey{}, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func principalFromContext(ctx context.Context) *services.Principal {
	p, _ := ctx.Value(principalKey{}).(*services.Principal)
	return p
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

// decodeOptionalJSON accepts an empty body.
func decodeOptionalJSON(r *http.Request, out interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func writeOK(w http.ResponseWriter, extra map[string]interface{}) {
	payload := map[string]interface{}{"ok": true}
	for k, v := range extra {
		payload[k] = v
	}
	writeJSON(w, http.StatusOK, payload)
}
