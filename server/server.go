package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-video-server/accounts"
	"github.com/jrsteele09/go-video-server/auth"
	"github.com/jrsteele09/go-video-server/internal/config"
	"github.com/jrsteele09/go-video-server/subscriptions"
)

// Services are the domain services the HTTP layer dispatches to.
type Services struct {
	Sessions      *auth.SessionService
	Authenticator *auth.Authenticator
	Accounts      *accounts.Service
	Subscriptions *subscriptions.Service
}

func (s Services) validate() error {
	switch {
	case s.Sessions == nil:
		return errors.New("[Server New] session service is required")
	case s.Authenticator == nil:
		return errors.New("[Server New] authenticator is required")
	case s.Accounts == nil:
		return errors.New("[Server New] accounts service is required")
	case s.Subscriptions == nil:
		return errors.New("[Server New] subscriptions service is required")
	}
	return nil
}

type Server struct {
	mux            *http.ServeMux
	routes         []string
	config         config.Config
	sessions       *auth.SessionService
	authenticator  *auth.Authenticator
	accounts       *accounts.Service
	subscriptions  *subscriptions.Service
	maxUploadBytes int64
}

func New(config config.Config, services Services) (*Server, error) {
	if err := services.validate(); err != nil {
		return nil, err
	}

	s := &Server{
		mux:            http.NewServeMux(),
		config:         config,
		sessions:       services.Sessions,
		authenticator:  services.Authenticator,
		accounts:       services.Accounts,
		subscriptions:  services.Subscriptions,
		maxUploadBytes: config.GetMaxUploadBytes(),
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if !s.config.IsDev() {
		return
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "", route
		}
		log.Debug().Str("method", method).Str("path", path).Msg("route registered")
	}
}
