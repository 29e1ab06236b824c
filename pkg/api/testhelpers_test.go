package api

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scouttools/basecamp/pkg/auth"
	"github.com/scouttools/basecamp/pkg/events"
	"github.com/scouttools/basecamp/pkg/hierarchy"
	"github.com/scouttools/basecamp/pkg/identity"
	"github.com/scouttools/basecamp/pkg/middleware"
	"github.com/scouttools/basecamp/pkg/permissions"
	"github.com/scouttools/basecamp/pkg/registrations"
	"github.com/scouttools/basecamp/pkg/scope"
)

// memEventStore is an in-memory events.Store.
type memEventStore struct {
	mu     sync.Mutex
	byID   map[int64]*events.Event
	nextID int64
}

func newMemEventStore() *memEventStore {
	return &memEventStore{byID: make(map[int64]*events.Event), nextID: 1}
}

func (s *memEventStore) Get(ctx context.Context, id int64) (*events.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.byID[id]
	if !ok {
		return nil, events.ErrEventNotFound
	}
	copied := *event
	return &copied, nil
}

func (s *memEventStore) Create(ctx context.Context, event *events.Event, creatorID int64) error {
	if err := events.ValidateTimeline(nil, event); err != nil {
		return err
	}
	if event.RegistrationLevel == 0 {
		event.RegistrationLevel = hierarchy.LevelStamm
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	event.ID = s.nextID
	s.nextID++
	event.ResponsiblePersons = []int64{creatorID}
	copied := *event
	s.byID[event.ID] = &copied
	return nil
}

func (s *memEventStore) Update(ctx context.Context, event *events.Event) error {
	stored, err := s.Get(ctx, event.ID)
	if err != nil {
		return err
	}
	if err := events.ValidateTimeline(stored, event); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	event.ResponsiblePersons = stored.ResponsiblePersons
	copied := *event
	s.byID[event.ID] = &copied
	return nil
}

func (s *memEventStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return events.ErrEventNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *memEventStore) List(ctx context.Context) ([]*events.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*events.Event, 0, len(s.byID))
	for _, event := range s.byID {
		copied := *event
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memEventStore) AddResponsiblePerson(ctx context.Context, eventID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.byID[eventID]
	if !ok {
		return events.ErrEventNotFound
	}
	event.ResponsiblePersons = append(event.ResponsiblePersons, userID)
	return nil
}

// memRegStore is an in-memory registrations.Store. Scope filtering matches
// against the unit store the way the SQL predicate would.
type memRegStore struct {
	mu           sync.Mutex
	units        *hierarchy.MemoryStore
	byID         map[int64]*registrations.Registration
	participants map[int64][]*registrations.Participant
	attributes   map[int64][]*registrations.Attribute
	incomes      map[int64][]*registrations.CashIncome
	nextID       int64
	nextItemID   int64
}

func newMemRegStore(units *hierarchy.MemoryStore) *memRegStore {
	return &memRegStore{
		units:        units,
		byID:         make(map[int64]*registrations.Registration),
		participants: make(map[int64][]*registrations.Participant),
		attributes:   make(map[int64][]*registrations.Attribute),
		incomes:      make(map[int64][]*registrations.CashIncome),
		nextID:       1,
		nextItemID:   1,
	}
}

func (s *memRegStore) Get(ctx context.Context, id int64) (*registrations.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.byID[id]
	if !ok {
		return nil, registrations.ErrRegistrationNotFound
	}
	copied := *reg
	return &copied, nil
}

func (s *memRegStore) Create(ctx context.Context, reg *registrations.Registration, creatorID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg.ID = s.nextID
	s.nextID++
	reg.ResponsiblePersons = []int64{creatorID}
	copied := *reg
	s.byID[reg.ID] = &copied
	return nil
}

func (s *memRegStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return registrations.ErrRegistrationNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *memRegStore) SetConfirmed(ctx context.Context, id int64, confirmed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.byID[id]
	if !ok {
		return registrations.ErrRegistrationNotFound
	}
	reg.IsConfirmed = confirmed
	return nil
}

func (s *memRegStore) inScope(ctx context.Context, reg *registrations.Registration, eventID int64, scope hierarchy.Predicate) bool {
	if reg.EventID != eventID {
		return false
	}
	unit, err := s.units.Get(ctx, reg.ScoutOrganisationID)
	if err != nil {
		return false
	}
	return scope.Match(unit)
}

func (s *memRegStore) List(ctx context.Context, eventID int64, scope hierarchy.Predicate) ([]*registrations.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*registrations.Registration{}
	for _, reg := range s.byID {
		if s.inScope(ctx, reg, eventID, scope) {
			copied := *reg
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memRegStore) ListParticipants(ctx context.Context, eventID int64, scope hierarchy.Predicate) ([]*registrations.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*registrations.Participant{}
	for _, reg := range s.byID {
		if s.inScope(ctx, reg, eventID, scope) {
			out = append(out, s.participants[reg.ID]...)
		}
	}
	return out, nil
}

func (s *memRegStore) ListAttributes(ctx context.Context, eventID int64, scope hierarchy.Predicate) ([]*registrations.Attribute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*registrations.Attribute{}
	for _, reg := range s.byID {
		if s.inScope(ctx, reg, eventID, scope) {
			out = append(out, s.attributes[reg.ID]...)
		}
	}
	return out, nil
}

func (s *memRegStore) ListCashIncomes(ctx context.Context, eventID int64, scope hierarchy.Predicate) ([]*registrations.CashIncome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*registrations.CashIncome{}
	for _, reg := range s.byID {
		if s.inScope(ctx, reg, eventID, scope) {
			out = append(out, s.incomes[reg.ID]...)
		}
	}
	return out, nil
}

func (s *memRegStore) Summary(ctx context.Context, eventID int64, scope hierarchy.Predicate) ([]*registrations.UnitSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byUnit := make(map[int64]*registrations.UnitSummary)
	for _, reg := range s.byID {
		if !s.inScope(ctx, reg, eventID, scope) {
			continue
		}
		summary, ok := byUnit[reg.ScoutOrganisationID]
		if !ok {
			unit, err := s.units.Get(ctx, reg.ScoutOrganisationID)
			if err != nil {
				return nil, err
			}
			summary = &registrations.UnitSummary{OrgUnitID: unit.ID, OrgUnitName: unit.Name}
			byUnit[unit.ID] = summary
		}
		summary.Registrations++
		summary.Participants += len(s.participants[reg.ID])
		if reg.IsConfirmed {
			summary.Confirmed++
		}
	}
	out := make([]*registrations.UnitSummary, 0, len(byUnit))
	for _, summary := range byUnit {
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrgUnitID < out[j].OrgUnitID })
	return out, nil
}

func (s *memRegStore) CountParticipants(ctx context.Context, registrationID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.participants[registrationID]), nil
}

func (s *memRegStore) AddParticipant(ctx context.Context, p *registrations.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextItemID
	s.nextItemID++
	s.participants[p.RegistrationID] = append(s.participants[p.RegistrationID], p)
	return nil
}

func (s *memRegStore) AddAttribute(ctx context.Context, a *registrations.Attribute) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.nextItemID
	s.nextItemID++
	s.attributes[a.RegistrationID] = append(s.attributes[a.RegistrationID], a)
	return nil
}

func (s *memRegStore) AddCashIncome(ctx context.Context, c *registrations.CashIncome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.nextItemID
	s.nextItemID++
	s.incomes[c.RegistrationID] = append(s.incomes[c.RegistrationID], c)
	return nil
}

// memUserStore is a map-backed auth.Store.
type memUserStore struct {
	mu     sync.Mutex
	byExt  map[string]*auth.User
	nextID int64
}

func newMemUserStore() *memUserStore {
	return &memUserStore{byExt: make(map[string]*auth.User), nextID: 1}
}

func (s *memUserStore) Get(ctx context.Context, id int64) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byExt {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (s *memUserStore) GetByExternalID(ctx context.Context, externalID string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byExt[externalID]; ok {
		return u, nil
	}
	return nil, auth.ErrUserNotFound
}

func (s *memUserStore) Upsert(ctx context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byExt[user.ExternalID]; ok {
		user.ID = existing.ID
	} else {
		user.ID = s.nextID
		s.nextID++
	}
	s.byExt[user.ExternalID] = user
	return nil
}

func (s *memUserStore) TouchLogin(ctx context.Context, id int64) error { return nil }

// env bundles the wired test server with all its fakes.
type env struct {
	server   *Server
	units    *hierarchy.MemoryStore
	events   *memEventStore
	regs     *memRegStore
	users    *memUserStore
	groups   *identity.FakeResolver
	dir      *identity.FakeDirectory
	verifier *identity.FakeVerifier
}

func int64Ptr(v int64) *int64 { return &v }

// newEnv wires a server over the two-region unit tree used across the
// permission tests: federation F1 with rings R1 (stamms T1, T2) and R2
// (stamm T3).
func newEnv(t *testing.T) *env {
	t.Helper()

	units := hierarchy.NewMemoryStore()
	units.Add(hierarchy.OrgUnit{ID: 1, Name: "DPV", Level: hierarchy.LevelAssociation})
	units.Add(hierarchy.OrgUnit{ID: 2, Name: "F1", Level: hierarchy.LevelBund, ParentID: int64Ptr(1)})
	units.Add(hierarchy.OrgUnit{ID: 3, Name: "R1", Level: hierarchy.LevelRing, ParentID: int64Ptr(2)})
	units.Add(hierarchy.OrgUnit{ID: 4, Name: "R2", Level: hierarchy.LevelRing, ParentID: int64Ptr(2)})
	units.Add(hierarchy.OrgUnit{ID: 5, Name: "T1", Level: hierarchy.LevelStamm, ParentID: int64Ptr(3)})
	units.Add(hierarchy.OrgUnit{ID: 6, Name: "T2", Level: hierarchy.LevelStamm, ParentID: int64Ptr(3)})
	units.Add(hierarchy.OrgUnit{ID: 7, Name: "T3", Level: hierarchy.LevelStamm, ParentID: int64Ptr(4)})

	e := &env{
		units:    units,
		events:   newMemEventStore(),
		regs:     newMemRegStore(units),
		users:    newMemUserStore(),
		groups:   identity.NewFakeResolver(),
		dir:      identity.NewFakeDirectory(),
		verifier: identity.NewFakeVerifier(),
	}

	resolver := permissions.NewResolver(e.groups, e.dir, nil, nil)
	authn := middleware.NewAuthenticator(e.verifier, e.users, e.groups, nil)

	e.server = NewServer(Deps{
		Events:        e.events,
		Registrations: e.regs,
		Units:         units,
		Gate:          permissions.NewGate(resolver),
		Filter:        scope.NewFilter(resolver, units, nil),
		Authn:         authn,
	})
	return e
}

// addUser registers a profile and a token that authenticates as it.
func (e *env) addUser(t *testing.T, token string, user *auth.User) *auth.User {
	t.Helper()
	require.NoError(t, e.users.Upsert(context.Background(), user))
	e.verifier.Tokens[token] = &identity.Claims{Subject: user.ExternalID, Username: user.Username}
	return user
}

// day offsets from the current time; the handlers evaluate the registration
// window against the wall clock.
func day(offset int) time.Time {
	return time.Now().AddDate(0, 0, offset)
}

// openEvent returns an event whose registration window is currently open.
func openEvent() *events.Event {
	return &events.Event{
		Name:                 "Bundeslager",
		StartAt:              day(30),
		EndAt:                day(40),
		RegistrationStart:    day(-10),
		RegistrationDeadline: day(20),
		ViewGroupID:          "g-view",
		AdminGroupID:         "g-admin",
		RegistrationLevel:    hierarchy.LevelStamm,
	}
}
