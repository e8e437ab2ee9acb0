package filterstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/matst80/slask-fordon/pkg/types"
)

const (
	DefaultNamespace = "vehicle-browser"
	payloadVersion   = 1
)

type Listener func(state types.FilterState)

type subscription struct {
	id       int
	listener Listener
}

type payload struct {
	Version int               `json:"version"`
	Filters types.FilterState `json:"filters"`
}

// Store owns the filter state of one browsing session. Consumers get a
// handle to it, there is no package level instance.
type Store struct {
	mu        sync.Mutex
	state     types.FilterState
	storage   Storage
	key       string
	listeners []subscription
	nextId    int
}

// New creates a store and hydrates it from storage. Missing or unreadable
// data falls back to the empty state.
func New(storage Storage, namespace string) *Store {
	if storage == nil {
		storage = NullStorage{}
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	s := &Store{
		storage: storage,
		key:     namespace + ":filters",
	}
	s.state = s.hydrate()
	return s
}

func (s *Store) hydrate() types.FilterState {
	data, err := s.storage.Get(s.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("could not read stored filters, using defaults: %v", err)
		}
		return types.EmptyFilterState()
	}
	state, err := Decode(data)
	if err != nil {
		log.Printf("ignoring stored filters: %v", err)
		return types.EmptyFilterState()
	}
	return state
}

func Encode(state types.FilterState) ([]byte, error) {
	return json.Marshal(payload{Version: payloadVersion, Filters: state.Normalize()})
}

func Decode(data []byte) (types.FilterState, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return types.EmptyFilterState(), fmt.Errorf("malformed filter payload: %w", err)
	}
	if p.Version != payloadVersion {
		return types.EmptyFilterState(), fmt.Errorf("unsupported filter payload version %d", p.Version)
	}
	return p.Filters.Normalize(), nil
}

// State returns a copy of the current filters, callers may modify it freely.
func (s *Store) State() types.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Persistent reports whether changes still reach durable storage.
func (s *Store) Persistent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, isNull := s.storage.(NullStorage)
	return !isNull
}

// Subscribe registers a listener called synchronously after every change.
// Listeners run in the order they subscribed.
func (s *Store) Subscribe(listener Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextId
	s.nextId++
	s.listeners = append(s.listeners, subscription{id: id, listener: listener})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.listeners = slices.DeleteFunc(s.listeners, func(sub subscription) bool {
			return sub.id == id
		})
	}
}

func (s *Store) persistUnsafe() {
	data, err := Encode(s.state)
	if err != nil {
		log.Printf("could not encode filters: %v", err)
		return
	}
	if err := s.storage.Set(s.key, data); err != nil {
		log.Printf("filter storage failed, continuing in memory: %v", err)
		s.storage = NullStorage{}
	}
}

func (s *Store) apply(fn func(types.FilterState) types.FilterState) {
	s.mu.Lock()
	next := fn(s.state).Normalize()
	if next.Equal(s.state) {
		s.mu.Unlock()
		return
	}
	s.state = next
	s.persistUnsafe()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, sub := range listeners {
		sub.listener(next.Clone())
	}
}

func (s *Store) UpdateFilters(patch types.FilterPatch) {
	s.apply(func(state types.FilterState) types.FilterState {
		return state.Merge(patch)
	})
}

func (s *Store) ToggleVendor(vendor string) {
	s.apply(func(state types.FilterState) types.FilterState {
		return state.WithVendorToggled(vendor)
	})
}

func (s *Store) ToggleCategory(category string) {
	s.apply(func(state types.FilterState) types.FilterState {
		return state.WithCategoryToggled(category)
	})
}

func (s *Store) ToggleChassis(chassis string) {
	s.apply(func(state types.FilterState) types.FilterState {
		return state.WithChassisToggled(chassis)
	})
}

func (s *Store) SetVehicle(model string, year int) {
	s.apply(func(state types.FilterState) types.FilterState {
		return state.WithVehicle(model, year)
	})
}

func (s *Store) ClearVehicle() {
	s.apply(func(state types.FilterState) types.FilterState {
		state.Vehicle = nil
		return state
	})
}

func (s *Store) SetSearchTerm(term string) {
	s.apply(func(state types.FilterState) types.FilterState {
		return state.WithSearchTerm(term)
	})
}

func (s *Store) ClearSearchTerm() {
	s.SetSearchTerm("")
}

// ClearFilters resets every dimension, the pinned vehicle included.
func (s *Store) ClearFilters() {
	s.apply(func(types.FilterState) types.FilterState {
		return types.EmptyFilterState()
	})
}
