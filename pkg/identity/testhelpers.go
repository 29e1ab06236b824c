package identity

import (
	"context"
	"sync"
)

// FakeResolver is an in-memory GroupResolver for tests and local
// development. It records lookup counts so cache tests can assert on
// round trips.
type FakeResolver struct {
	mu sync.Mutex

	// Groups maps user id to group ids.
	Groups map[string][]string

	// Err, when set, is returned from every lookup.
	Err error

	// Calls counts GroupsOf invocations per user.
	Calls map[string]int
}

// NewFakeResolver creates an empty fake resolver.
func NewFakeResolver() *FakeResolver {
	return &FakeResolver{
		Groups: make(map[string][]string),
		Calls:  make(map[string]int),
	}
}

// GroupsOf returns the configured groups for the user.
func (f *FakeResolver) GroupsOf(ctx context.Context, token string, userID string) (GroupSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls[userID]++
	if f.Err != nil {
		return nil, f.Err
	}
	return NewGroupSet(f.Groups[userID]...), nil
}

// FakeVerifier is an in-memory TokenVerifier for tests. Tokens map to the
// claims they carry; unknown tokens fail with ErrNotAuthorized.
type FakeVerifier struct {
	mu sync.Mutex

	// Tokens maps a raw token to its claims.
	Tokens map[string]*Claims
}

// NewFakeVerifier creates an empty fake verifier.
func NewFakeVerifier() *FakeVerifier {
	return &FakeVerifier{Tokens: make(map[string]*Claims)}
}

// VerifyToken returns the configured claims or ErrNotAuthorized.
func (f *FakeVerifier) VerifyToken(ctx context.Context, token string) (*Claims, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if claims, ok := f.Tokens[token]; ok {
		return claims, nil
	}
	return nil, ErrNotAuthorized
}

// FakeDirectory is an in-memory Directory for tests.
type FakeDirectory struct {
	mu sync.Mutex

	// ByName maps group name to group.
	ByName map[string]*Group

	// Err, when set, is returned from every lookup (simulates an outage).
	Err error

	// Calls counts GroupByName invocations per name.
	Calls map[string]int
}

// NewFakeDirectory creates an empty fake directory.
func NewFakeDirectory() *FakeDirectory {
	return &FakeDirectory{
		ByName: make(map[string]*Group),
		Calls:  make(map[string]int),
	}
}

// AddGroup registers a group under its name.
func (f *FakeDirectory) AddGroup(group *Group) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ByName[group.Name] = group
}

// GroupByName returns the configured group or ErrGroupNotFound.
func (f *FakeDirectory) GroupByName(ctx context.Context, name string) (*Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls[name]++
	if f.Err != nil {
		return nil, f.Err
	}
	if group, ok := f.ByName[name]; ok {
		return group, nil
	}
	return nil, ErrGroupNotFound
}
