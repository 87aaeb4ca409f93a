package game

import (
	"sync"

	"github.com/platinumchess/backend/internal/accounts"
	"github.com/platinumchess/backend/internal/chessrules"
)

// Color re-exports the rules engine's side enum so callers deal with one
// type across the session, queue and settlement surfaces.
type Color = chessrules.Color

const (
	White = chessrules.White
	Black = chessrules.Black
)

// Emitter delivers events to connected clients. The realtime gateway's hub
// implements it; tests substitute a recorder.
type Emitter interface {
	// ToSession sends an event to a single transport session.
	ToSession(sessionID, event string, payload interface{})
	// ToRoom sends an event to every session subscribed to a room.
	ToRoom(roomID, event string, payload interface{})
}

// Service owns the room registry, the pairing queues and the escrow ledger.
// It is constructed once at startup and injected into the realtime gateway;
// there are no package-level instances.
type Service struct {
	store    accounts.Store
	escrow   *Escrow
	emit     Emitter
	minStake float64

	mu     sync.Mutex
	rooms  map[string]*Room
	queues map[string][]*Ticket
}

// NewService creates a service around the given account store and emitter.
// Tickets staking less than minStakeUSD are rejected at enqueue.
func NewService(store accounts.Store, emit Emitter, minStakeUSD float64) *Service {
	return &Service{
		store:    store,
		escrow:   NewEscrow(store),
		emit:     emit,
		minStake: minStakeUSD,
		rooms:    make(map[string]*Room),
		queues:   make(map[string][]*Ticket),
	}
}

// getOrCreateRoom returns the room, creating it with an empty board and
// empty player slots on first reference. Idempotent.
func (s *Service) getOrCreateRoom(roomID string) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, exists := s.rooms[roomID]
	if !exists {
		room = newRoom(roomID)
		s.rooms[roomID] = room
	}
	return room
}

// roomByID returns an existing room without creating one.
func (s *Service) roomByID(roomID string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, exists := s.rooms[roomID]
	return room, exists
}

// ActiveRoomCount returns the number of rooms in the registry.
func (s *Service) ActiveRoomCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// QueueStatus returns the number of waiting tickets per bucket.
func (s *Service) QueueStatus() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := make(map[string]int)
	for key, queue := range s.queues {
		status[key] = len(queue)
	}
	return status
}
