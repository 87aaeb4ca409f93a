package game

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/google/uuid"
)

// Ticket is one player waiting to be matched.
type Ticket struct {
	PlayerID  string
	SessionID string
	AccountID string
	StakeUSD  float64
}

type pairedPayload struct {
	RoomID string `json:"roomId"`
	Time   string `json:"time"`
}

type queueRejectedPayload struct {
	Reason string `json:"reason"`
}

// bucketKey groups tickets by time control and stake. Stakes are compared
// in whole cents so 10.00 and 10.004 land in the same bucket.
func bucketKey(timeControl string, stakeUSD float64) string {
	cents := int(math.Floor(stakeUSD * 100))
	if cents < 0 {
		cents = 0
	}
	return fmt.Sprintf("%s|%d", timeControl, cents)
}

// EnqueueForMatch places a ticket in the bucket for its time control and
// stake, then tries to pair the two oldest waiters. Pairing debits both
// stakes into escrow before the room is announced; any failure along the
// way rejects or requeues the affected tickets.
func (s *Service) EnqueueForMatch(ctx context.Context, timeControl string, ticket Ticket) {
	if timeControl == "" || ticket.PlayerID == "" || ticket.SessionID == "" {
		return
	}
	if ticket.StakeUSD < s.minStake {
		s.emit.ToSession(ticket.SessionID, "queueRejected", queueRejectedPayload{Reason: "Stake below minimum"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := bucketKey(timeControl, ticket.StakeUSD)
	queue := s.queues[key]

	found := false
	for _, waiting := range queue {
		if waiting.PlayerID == ticket.PlayerID {
			// Duplicate enqueue: keep queue position, refresh the session
			// so replies reach the newest connection.
			waiting.SessionID = ticket.SessionID
			found = true
			break
		}
	}
	if !found {
		queue = append(queue, &ticket)
	}

	if len(queue) < 2 {
		s.queues[key] = queue
		return
	}

	a, b := queue[0], queue[1]
	rest := queue[2:]
	s.queues[key] = rest

	stakeEach := math.Floor(a.StakeUSD*100) / 100
	if stakeEach <= 0 || math.Abs(stakeEach-math.Floor(b.StakeUSD*100)/100) > 1e-9 {
		s.emit.ToSession(a.SessionID, "queueRejected", queueRejectedPayload{Reason: "Stake mismatch"})
		s.emit.ToSession(b.SessionID, "queueRejected", queueRejectedPayload{Reason: "Stake mismatch"})
		return
	}

	balA, errA := s.store.GetBalanceUSD(ctx, a.AccountID)
	balB, errB := s.store.GetBalanceUSD(ctx, b.AccountID)
	if errA != nil || errB != nil {
		log.Printf("[QUEUE] Balance lookup failed for bucket %s: %v %v", key, errA, errB)
		s.emit.ToSession(a.SessionID, "queueRejected", queueRejectedPayload{Reason: "Balance unavailable"})
		s.emit.ToSession(b.SessionID, "queueRejected", queueRejectedPayload{Reason: "Balance unavailable"})
		return
	}

	if balA < stakeEach {
		s.emit.ToSession(a.SessionID, "queueRejected", queueRejectedPayload{Reason: "Insufficient funds"})
		s.queues[key] = append([]*Ticket{b}, rest...)
		return
	}
	if balB < stakeEach {
		s.emit.ToSession(b.SessionID, "queueRejected", queueRejectedPayload{Reason: "Insufficient funds"})
		s.queues[key] = append([]*Ticket{a}, rest...)
		return
	}

	if err := s.escrow.Debit(ctx, a.AccountID, stakeEach, ""); err != nil {
		log.Printf("[QUEUE] Escrow debit failed for %s: %v", a.AccountID, err)
		s.rejectPair(key, a, b, rest, "Escrow failed")
		return
	}
	if err := s.escrow.Debit(ctx, b.AccountID, stakeEach, ""); err != nil {
		log.Printf("[QUEUE] Escrow debit failed for %s: %v", b.AccountID, err)
		if rerr := s.escrow.Refund(ctx, a.AccountID, stakeEach, ""); rerr != nil {
			log.Printf("[QUEUE] Compensating refund failed for %s: %v", a.AccountID, rerr)
		}
		s.rejectPair(key, a, b, rest, "Escrow failed")
		return
	}

	roomID := uuid.NewString()
	room := newRoom(roomID)
	room.timeControl = timeControl
	room.stakeEachUSD = stakeEach
	room.potUSD = round2(stakeEach * 2)
	s.rooms[roomID] = room

	payload := pairedPayload{RoomID: roomID, Time: timeControl}
	s.emit.ToSession(a.SessionID, "paired", payload)
	s.emit.ToSession(b.SessionID, "paired", payload)
	log.Printf("[QUEUE] Paired %s vs %s in room %s (stake %.2f)", a.PlayerID, b.PlayerID, roomID, stakeEach)
}

// rejectPair notifies both tickets and puts them back at the front of the
// bucket so a transient escrow failure does not lose queue position.
func (s *Service) rejectPair(key string, a, b *Ticket, rest []*Ticket, reason string) {
	s.emit.ToSession(a.SessionID, "queueRejected", queueRejectedPayload{Reason: reason})
	s.emit.ToSession(b.SessionID, "queueRejected", queueRejectedPayload{Reason: reason})
	s.queues[key] = append([]*Ticket{a, b}, rest...)
}

// LeaveQueues removes every ticket the given session enqueued. Called when
// the owning connection drops; a re-enqueue from a newer session keeps its
// place because duplicate enqueues refresh the ticket's session id.
func (s *Service) LeaveQueues(playerID, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, queue := range s.queues {
		kept := queue[:0]
		for _, t := range queue {
			if t.PlayerID != playerID || t.SessionID != sessionID {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			delete(s.queues, key)
		} else {
			s.queues[key] = kept
		}
	}
}
