package api

import (
	"errors"
	"net/http"

	"github.com/scouttools/basecamp/pkg/auth"
	"github.com/scouttools/basecamp/pkg/events"
	"github.com/scouttools/basecamp/pkg/hierarchy"
	"github.com/scouttools/basecamp/pkg/httputil"
	"github.com/scouttools/basecamp/pkg/identity"
	"github.com/scouttools/basecamp/pkg/middleware"
	"github.com/scouttools/basecamp/pkg/observability"
	"github.com/scouttools/basecamp/pkg/registrations"
)

// caller returns the authenticated user, writing 401 when absent.
func caller(w http.ResponseWriter, r *http.Request) (*auth.AuthContext, bool) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil || authCtx.User == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return nil, false
	}
	return authCtx, true
}

// writeDomainError maps domain errors to HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, events.ErrEventNotFound),
		errors.Is(err, registrations.ErrRegistrationNotFound),
		errors.Is(err, hierarchy.ErrUnitNotFound):
		httputil.WriteNotFoundError(w, err.Error())
	case errors.Is(err, events.ErrInvalidTimeline):
		httputil.WriteBadRequest(w, err.Error())
	case errors.Is(err, registrations.ErrDeadlinePassed):
		httputil.WriteErrorMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, identity.ErrNotAuthorized):
		httputil.WriteUnauthorized(w, "identity provider rejected the request")
	default:
		observability.FromContext(r.Context()).WithError(err).Error("request failed")
		httputil.WriteInternalError(w, errors.New("internal error"))
	}
}

// createEvent handles POST /api/v1/events. Any authenticated user may
// create an event; the creator becomes its sole responsible person.
func (s *Server) createEvent(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := caller(w, r)
	if !ok {
		return
	}

	var event events.Event
	if !httputil.ParseJSONOrError(w, r, &event) {
		return
	}
	if !httputil.RequireNonEmpty(w, event.Name, "name") {
		return
	}

	if err := s.events.Create(r.Context(), &event, authCtx.User.ID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	httputil.WriteCreated(w, &event)
}

// listEvents handles GET /api/v1/events, returning the events the caller
// may see in any capacity.
func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := caller(w, r)
	if !ok {
		return
	}

	all, err := s.events.List(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	visible := make([]*events.Event, 0, len(all))
	for _, event := range all {
		allowed, err := s.gate.CanViewWithLeadership(r.Context(), authCtx.User, event, authCtx.Token)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		if allowed {
			visible = append(visible, event)
		}
	}
	httputil.WriteSuccess(w, visible)
}

// getEvent handles GET /api/v1/events/{id}.
func (s *Server) getEvent(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := caller(w, r)
	if !ok {
		return
	}
	event, ok := s.loadEvent(w, r)
	if !ok {
		return
	}

	allowed, err := s.gate.CanViewWithLeadership(r.Context(), authCtx.User, event, authCtx.Token)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if !allowed {
		httputil.WriteForbidden(w, "no view authority for this event")
		return
	}
	httputil.WriteSuccess(w, event)
}

// updateEvent handles PUT /api/v1/events/{id}.
func (s *Server) updateEvent(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := caller(w, r)
	if !ok {
		return
	}
	event, ok := s.loadEvent(w, r)
	if !ok {
		return
	}

	allowed, err := s.gate.CanEditEvent(r.Context(), authCtx.User, event, authCtx.Token)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if !allowed {
		httputil.WriteForbidden(w, "no admin authority for this event")
		return
	}

	var updated events.Event
	if !httputil.ParseJSONOrError(w, r, &updated) {
		return
	}
	updated.ID = event.ID

	if err := s.events.Update(r.Context(), &updated); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, &updated)
}

// deleteEvent handles DELETE /api/v1/events/{id}.
func (s *Server) deleteEvent(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := caller(w, r)
	if !ok {
		return
	}
	event, ok := s.loadEvent(w, r)
	if !ok {
		return
	}

	allowed, err := s.gate.CanEditEvent(r.Context(), authCtx.User, event, authCtx.Token)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if !allowed {
		httputil.WriteForbidden(w, "no admin authority for this event")
		return
	}

	if err := s.events.Delete(r.Context(), event.ID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

// addResponsiblePerson handles POST /api/v1/events/{id}/responsible.
func (s *Server) addResponsiblePerson(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := caller(w, r)
	if !ok {
		return
	}
	event, ok := s.loadEvent(w, r)
	if !ok {
		return
	}

	allowed, err := s.gate.CanEditEvent(r.Context(), authCtx.User, event, authCtx.Token)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if !allowed {
		httputil.WriteForbidden(w, "no admin authority for this event")
		return
	}

	var req struct {
		UserID int64 `json:"user_id"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.UserID == 0 {
		httputil.WriteBadRequest(w, "user_id is required")
		return
	}

	if err := s.events.AddResponsiblePerson(r.Context(), event.ID, req.UserID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

// loadEvent fetches the event named by the {id} path variable, writing the
// error response on failure.
func (s *Server) loadEvent(w http.ResponseWriter, r *http.Request) (*events.Event, bool) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return nil, false
	}
	event, err := s.events.Get(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return nil, false
	}
	return event, true
}
