package api

import (
	"net/http"
	"time"

	"github.com/scouttools/basecamp/pkg/auth"
	"github.com/scouttools/basecamp/pkg/events"
	"github.com/scouttools/basecamp/pkg/hierarchy"
	"github.com/scouttools/basecamp/pkg/httputil"
	"github.com/scouttools/basecamp/pkg/registrations"
	"github.com/scouttools/basecamp/pkg/scope"
)

// createRegistration handles POST /api/v1/events/{id}/registrations.
// Creation is open to any invited caller while the registration window is
// open; event admins may register outside the window.
func (s *Server) createRegistration(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := caller(w, r)
	if !ok {
		return
	}
	event, ok := s.loadEvent(w, r)
	if !ok {
		return
	}

	if !event.RegistrationOpen(time.Now()) {
		admin, err := s.gate.CanEditEvent(r.Context(), authCtx.User, event, authCtx.Token)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		if !admin {
			httputil.WriteForbidden(w, "registration window is closed")
			return
		}
	}

	var reg registrations.Registration
	if !httputil.ParseJSONOrError(w, r, &reg) {
		return
	}
	reg.EventID = event.ID
	if reg.ScoutOrganisationID == 0 {
		httputil.WriteBadRequest(w, "scout_organisation_id is required")
		return
	}

	unit, err := s.units.Get(r.Context(), reg.ScoutOrganisationID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if unit.Level != event.RegistrationLevel {
		httputil.WriteBadRequest(w, "org unit is not at the event's registration level")
		return
	}

	if err := s.registrations.Create(r.Context(), &reg, authCtx.User.ID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	httputil.WriteCreated(w, &reg)
}

// registrationScope gates the list endpoints and resolves the caller's
// visibility predicate, narrowed by any stamm/ring/bund query parameters.
func (s *Server) registrationScope(w http.ResponseWriter, r *http.Request, user *auth.User, event *events.Event, token string) (hierarchy.Predicate, bool) {
	allowed, err := s.gate.CanViewWithLeadership(r.Context(), user, event, token)
	if err != nil {
		s.writeDomainError(w, r, err)
		return nil, false
	}
	if !allowed {
		httputil.WriteForbidden(w, "no view authority for this event")
		return nil, false
	}

	pred, err := s.filter.RegistrationScope(r.Context(), user, event, token)
	if err != nil {
		s.writeDomainError(w, r, err)
		return nil, false
	}

	var q scope.QueryFilters
	if q.Stamm, err = httputil.ParseQueryInt64List(r, "stamm"); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return nil, false
	}
	if q.Ring, err = httputil.ParseQueryInt64List(r, "ring"); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return nil, false
	}
	if q.Bund, err = httputil.ParseQueryInt64List(r, "bund"); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return nil, false
	}
	return scope.Narrow(pred, q), true
}

// listRegistrations handles GET /api/v1/events/{id}/registrations.
func (s *Server) listRegistrations(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := caller(w, r)
	if !ok {
		return
	}
	event, ok := s.loadEvent(w, r)
	if !ok {
		return
	}
	pred, ok := s.registrationScope(w, r, authCtx.User, event, authCtx.Token)
	if !ok {
		return
	}

	regs, err := s.registrations.List(r.Context(), event.ID, pred)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, regs)
}

// listParticipants handles GET /api/v1/events/{id}/participants.
func (s *Server) listParticipants(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := caller(w, r)
	if !ok {
		return
	}
	event, ok := s.loadEvent(w, r)
	if !ok {
		return
	}
	pred, ok := s.registrationScope(w, r, authCtx.User, event, authCtx.Token)
	if !ok {
		return
	}

	participants, err := s.registrations.ListParticipants(r.Context(), event.ID, pred)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, participants)
}

// listAttributes handles GET /api/v1/events/{id}/attributes.
func (s *Server) listAttributes(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := caller(w, r)
	if !ok {
		return
	}
	event, ok := s.loadEvent(w, r)
	if !ok {
		return
	}
	pred, ok := s.registrationScope(w, r, authCtx.User, event, authCtx.Token)
	if !ok {
		return
	}

	attrs, err := s.registrations.ListAttributes(r.Context(), event.ID, pred)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, attrs)
}

// listCashIncomes handles GET /api/v1/events/{id}/cash-incomes.
func (s *Server) listCashIncomes(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := caller(w, r)
	if !ok {
		return
	}
	event, ok := s.loadEvent(w, r)
	if !ok {
		return
	}
	pred, ok := s.registrationScope(w, r, authCtx.User, event, authCtx.Token)
	if !ok {
		return
	}

	incomes, err := s.registrations.ListCashIncomes(r.Context(), event.ID, pred)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, incomes)
}

// eventSummary handles GET /api/v1/events/{id}/summary, the per-unit
// statistics view available to sub-tree leaders.
func (s *Server) eventSummary(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := caller(w, r)
	if !ok {
		return
	}
	event, ok := s.loadEvent(w, r)
	if !ok {
		return
	}
	pred, ok := s.registrationScope(w, r, authCtx.User, event, authCtx.Token)
	if !ok {
		return
	}

	summary, err := s.registrations.Summary(r.Context(), event.ID, pred)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, summary)
}

// getRegistration handles GET /api/v1/registrations/{id}. Editors always
// see their registration; other callers see it only when it falls inside
// their visibility scope.
func (s *Server) getRegistration(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := caller(w, r)
	if !ok {
		return
	}
	reg, event, ok := s.loadRegistration(w, r)
	if !ok {
		return
	}

	allowed, err := s.gate.CanEditRegistration(r.Context(), authCtx.User, reg, event, authCtx.Token)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if !allowed {
		pred, err := s.filter.RegistrationScope(r.Context(), authCtx.User, event, authCtx.Token)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		unit, err := s.units.Get(r.Context(), reg.ScoutOrganisationID)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		if !pred.Match(unit) {
			httputil.WriteForbidden(w, "registration is outside your scope")
			return
		}
	}
	httputil.WriteSuccess(w, reg)
}

// deleteRegistration handles DELETE /api/v1/registrations/{id}. Deletion is
// unrestricted while the registration has no participants; afterwards it is
// blocked once the deadline passed.
func (s *Server) deleteRegistration(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := caller(w, r)
	if !ok {
		return
	}
	reg, event, ok := s.loadRegistration(w, r)
	if !ok {
		return
	}

	allowed, err := s.gate.CanEditRegistration(r.Context(), authCtx.User, reg, event, authCtx.Token)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if !allowed {
		httputil.WriteForbidden(w, "no edit authority for this registration")
		return
	}

	count, err := s.registrations.CountParticipants(r.Context(), reg.ID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := registrations.CanDelete(reg, event, count, time.Now()); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	if err := s.registrations.Delete(r.Context(), reg.ID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

// confirmRegistration handles PUT /api/v1/registrations/{id}/confirm.
func (s *Server) confirmRegistration(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := caller(w, r)
	if !ok {
		return
	}
	reg, event, ok := s.loadRegistration(w, r)
	if !ok {
		return
	}

	allowed, err := s.gate.CanEditRegistration(r.Context(), authCtx.User, reg, event, authCtx.Token)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if !allowed {
		httputil.WriteForbidden(w, "no edit authority for this registration")
		return
	}

	var req struct {
		Confirmed bool `json:"confirmed"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := s.registrations.SetConfirmed(r.Context(), reg.ID, req.Confirmed); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	reg.IsConfirmed = req.Confirmed
	httputil.WriteSuccess(w, reg)
}

// addParticipant handles POST /api/v1/registrations/{id}/participants.
func (s *Server) addParticipant(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := caller(w, r)
	if !ok {
		return
	}
	reg, event, ok := s.loadRegistration(w, r)
	if !ok {
		return
	}
	if !s.requireRegistrationEdit(w, r, authCtx, reg, event) {
		return
	}

	var participant registrations.Participant
	if !httputil.ParseJSONOrError(w, r, &participant) {
		return
	}
	participant.RegistrationID = reg.ID
	if !httputil.RequireNonEmpty(w, participant.FirstName, "first_name") {
		return
	}
	if !httputil.RequireNonEmpty(w, participant.LastName, "last_name") {
		return
	}

	if err := s.registrations.AddParticipant(r.Context(), &participant); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	httputil.WriteCreated(w, &participant)
}

// addAttribute handles POST /api/v1/registrations/{id}/attributes.
func (s *Server) addAttribute(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := caller(w, r)
	if !ok {
		return
	}
	reg, event, ok := s.loadRegistration(w, r)
	if !ok {
		return
	}
	if !s.requireRegistrationEdit(w, r, authCtx, reg, event) {
		return
	}

	var attr registrations.Attribute
	if !httputil.ParseJSONOrError(w, r, &attr) {
		return
	}
	attr.RegistrationID = reg.ID
	if !httputil.RequireNonEmpty(w, attr.Name, "name") {
		return
	}

	if err := s.registrations.AddAttribute(r.Context(), &attr); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	httputil.WriteCreated(w, &attr)
}

// addCashIncome handles POST /api/v1/registrations/{id}/cash-incomes.
// Booking payments is reserved for event admins.
func (s *Server) addCashIncome(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := caller(w, r)
	if !ok {
		return
	}
	reg, event, ok := s.loadRegistration(w, r)
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

	var income registrations.CashIncome
	if !httputil.ParseJSONOrError(w, r, &income) {
		return
	}
	income.RegistrationID = reg.ID
	if income.AmountCents == 0 {
		httputil.WriteBadRequest(w, "amount_cents is required")
		return
	}

	if err := s.registrations.AddCashIncome(r.Context(), &income); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	httputil.WriteCreated(w, &income)
}

// requireRegistrationEdit gates the participant and attribute mutations.
func (s *Server) requireRegistrationEdit(w http.ResponseWriter, r *http.Request, authCtx *auth.AuthContext, reg *registrations.Registration, event *events.Event) bool {
	allowed, err := s.gate.CanEditRegistration(r.Context(), authCtx.User, reg, event, authCtx.Token)
	if err != nil {
		s.writeDomainError(w, r, err)
		return false
	}
	if !allowed {
		httputil.WriteForbidden(w, "no edit authority for this registration")
		return false
	}
	return true
}

// loadRegistration fetches the registration named by the {id} path variable
// together with its event.
func (s *Server) loadRegistration(w http.ResponseWriter, r *http.Request) (*registrations.Registration, *events.Event, bool) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return nil, nil, false
	}
	reg, err := s.registrations.Get(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return nil, nil, false
	}
	event, err := s.events.Get(r.Context(), reg.EventID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return nil, nil, false
	}
	return reg, event, true
}
