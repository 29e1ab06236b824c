package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/scouttools/basecamp/pkg/events"
	"github.com/scouttools/basecamp/pkg/hierarchy"
	"github.com/scouttools/basecamp/pkg/middleware"
	"github.com/scouttools/basecamp/pkg/observability"
	"github.com/scouttools/basecamp/pkg/permissions"
	"github.com/scouttools/basecamp/pkg/registrations"
	"github.com/scouttools/basecamp/pkg/scope"
)

// Server represents our API server
type Server struct {
	router *mux.Router

	events        events.Store
	registrations registrations.Store
	units         hierarchy.Store
	gate          *permissions.Gate
	filter        *scope.Filter
	logger        *observability.Logger
}

// Deps carries everything the server needs.
type Deps struct {
	Events        events.Store
	Registrations registrations.Store
	Units         hierarchy.Store
	Gate          *permissions.Gate
	Filter        *scope.Filter
	Authn         *middleware.Authenticator
	Logger        *observability.Logger
	Metrics       *observability.Metrics
}

// NewServer creates a new API server
func NewServer(deps Deps) *Server {
	s := &Server{
		router:        mux.NewRouter(),
		events:        deps.Events,
		registrations: deps.Registrations,
		units:         deps.Units,
		gate:          deps.Gate,
		filter:        deps.Filter,
		logger:        deps.Logger,
	}
	s.setupRoutes(deps)
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes(deps Deps) {
	s.router.Use(mux.MiddlewareFunc(middleware.RequestID(deps.Logger)))
	s.router.Use(mux.MiddlewareFunc(middleware.Logging(deps.Logger, deps.Metrics)))
	s.router.Use(mux.MiddlewareFunc(middleware.Recovery(deps.Logger)))

	api := s.router.PathPrefix("/api/v1").Subrouter()
	if deps.Authn != nil {
		api.Use(mux.MiddlewareFunc(deps.Authn.Handler))
	}

	// Event routes
	api.HandleFunc("/events", s.createEvent).Methods("POST")
	api.HandleFunc("/events", s.listEvents).Methods("GET")
	api.HandleFunc("/events/{id}", s.getEvent).Methods("GET")
	api.HandleFunc("/events/{id}", s.updateEvent).Methods("PUT")
	api.HandleFunc("/events/{id}", s.deleteEvent).Methods("DELETE")
	api.HandleFunc("/events/{id}/responsible", s.addResponsiblePerson).Methods("POST")

	// Registration routes
	api.HandleFunc("/events/{id}/registrations", s.createRegistration).Methods("POST")
	api.HandleFunc("/events/{id}/registrations", s.listRegistrations).Methods("GET")
	api.HandleFunc("/events/{id}/participants", s.listParticipants).Methods("GET")
	api.HandleFunc("/events/{id}/attributes", s.listAttributes).Methods("GET")
	api.HandleFunc("/events/{id}/cash-incomes", s.listCashIncomes).Methods("GET")
	api.HandleFunc("/events/{id}/summary", s.eventSummary).Methods("GET")

	api.HandleFunc("/registrations/{id}", s.getRegistration).Methods("GET")
	api.HandleFunc("/registrations/{id}", s.deleteRegistration).Methods("DELETE")
	api.HandleFunc("/registrations/{id}/confirm", s.confirmRegistration).Methods("PUT")
	api.HandleFunc("/registrations/{id}/participants", s.addParticipant).Methods("POST")
	api.HandleFunc("/registrations/{id}/attributes", s.addAttribute).Methods("POST")
	api.HandleFunc("/registrations/{id}/cash-incomes", s.addCashIncome).Methods("POST")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
