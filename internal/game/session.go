package game

import (
	"context"
	"log"
	"strings"
	"time"
)

type colorAssignedPayload struct {
	Color Color `json:"color"`
}

type playerJoinedPayload struct {
	PlayerID string `json:"playerId"`
	Color    Color  `json:"color,omitempty"`
}

type moveMadePayload struct {
	From string `json:"from"`
	To   string `json:"to"`
	SAN  string `json:"san"`
	FEN  string `json:"fen"`
}

type moveRejectedPayload struct {
	Reason string `json:"reason"`
}

type gameOverPayload struct {
	Reason string `json:"reason"`
	Winner Color  `json:"winner,omitempty"`
	Loser  Color  `json:"loser,omitempty"`
}

type drawOfferedPayload struct {
	From Color `json:"from"`
}

type drawDeclinedPayload struct {
	By Color `json:"by"`
}

type chatMessagePayload struct {
	Text string `json:"text"`
	Name string `json:"name"`
	TS   int64  `json:"ts"`
}

// Join seats the player in the room, creating the room on first reference.
// The first joiner takes white, the second black, later joiners spectate.
// Rejoining with the same player id only refreshes the transport session.
func (s *Service) Join(ctx context.Context, roomID, playerID, sessionID, accountID string) {
	if roomID == "" || playerID == "" {
		return
	}

	room := s.getOrCreateRoom(roomID)
	room.mu.Lock()
	defer room.mu.Unlock()

	color := room.colorOf(playerID)
	if color != "" {
		room.slot(color).SessionID = sessionID
	} else if room.white == nil {
		color = White
		room.white = &PlayerSlot{PlayerID: playerID, SessionID: sessionID, AccountID: accountID}
	} else if room.black == nil {
		color = Black
		room.black = &PlayerSlot{PlayerID: playerID, SessionID: sessionID, AccountID: accountID}
	}

	if color != "" {
		slot := room.slot(color)
		if slot.AccountID == "" {
			slot.AccountID = accountID
		}
		s.emit.ToSession(sessionID, "colorAssigned", colorAssignedPayload{Color: color})
	}

	s.emit.ToSession(sessionID, "gameState", room.statePayload())
	s.resolveNames(ctx, room)
	s.emit.ToRoom(room.ID, "playerNames", room.namesPayload())
	s.emit.ToRoom(room.ID, "playerJoined", playerJoinedPayload{PlayerID: playerID, Color: color})
}

// resolveNames fills empty display names from the account store. Lookup
// failures leave the name blank. Caller holds room.mu.
func (s *Service) resolveNames(ctx context.Context, room *Room) {
	for _, slot := range []*PlayerSlot{room.white, room.black} {
		if slot == nil || slot.Name != "" || slot.AccountID == "" {
			continue
		}
		name, err := s.store.ResolveUsername(ctx, slot.AccountID)
		if err != nil {
			log.Printf("[ROOM] Username lookup failed for %s: %v", slot.AccountID, err)
			continue
		}
		slot.Name = name
	}
}

// MakeMove validates and applies a move. Rejections are reported only to
// the acting session; accepted moves broadcast moveMade plus a fresh
// gameState snapshot, and a terminal position ends and settles the game.
func (s *Service) MakeMove(ctx context.Context, roomID, playerID, sessionID, from, to, promotion string) {
	room, exists := s.roomByID(roomID)
	if !exists {
		s.emit.ToSession(sessionID, "moveRejected", moveRejectedPayload{Reason: "room not found"})
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.over {
		s.emit.ToSession(sessionID, "moveRejected", moveRejectedPayload{Reason: "game over"})
		return
	}
	color := room.colorOf(playerID)
	if color == "" {
		s.emit.ToSession(sessionID, "moveRejected", moveRejectedPayload{Reason: "not in room"})
		return
	}
	if color != room.board.Turn() {
		s.emit.ToSession(sessionID, "moveRejected", moveRejectedPayload{Reason: "not your turn"})
		return
	}

	move, err := room.board.Apply(from, to, promotion)
	if err != nil {
		s.emit.ToSession(sessionID, "moveRejected", moveRejectedPayload{Reason: "illegal move"})
		return
	}

	room.history = append(room.history, move)
	s.emit.ToRoom(room.ID, "moveMade", moveMadePayload{From: from, To: to, SAN: move.SAN, FEN: move.FEN})
	s.emit.ToRoom(room.ID, "gameState", room.statePayload())

	outcome, done := room.board.Terminal()
	if !done {
		return
	}

	room.over = true
	room.drawOffer = ""
	payload := gameOverPayload{Reason: string(outcome)}
	var winner Color
	if outcome.Decisive() {
		// The side to move after a mating move is the mated side.
		loser := room.board.Turn()
		winner = loser.Opponent()
		payload.Winner = winner
		payload.Loser = loser
	}
	s.emit.ToRoom(room.ID, "gameOver", payload)
	s.settle(ctx, room, winner, string(outcome))
}

// Resign ends the game in favor of the resigner's opponent.
func (s *Service) Resign(ctx context.Context, roomID, playerID string) {
	room, exists := s.roomByID(roomID)
	if !exists {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.over {
		return
	}
	color := room.colorOf(playerID)
	if color == "" {
		return
	}

	room.over = true
	room.drawOffer = ""
	winner := color.Opponent()
	s.emit.ToRoom(room.ID, "gameOver", gameOverPayload{Reason: "resign", Winner: winner, Loser: color})
	s.settle(ctx, room, winner, "resign")
}

// Flag ends the game on time against the named color. The clock runs on
// the client, so the report is trusted as-is.
func (s *Service) Flag(ctx context.Context, roomID string, loser Color) {
	if loser != White && loser != Black {
		return
	}
	room, exists := s.roomByID(roomID)
	if !exists {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.over {
		return
	}

	room.over = true
	room.drawOffer = ""
	winner := loser.Opponent()
	s.emit.ToRoom(room.ID, "gameOver", gameOverPayload{Reason: "timeout", Winner: winner, Loser: loser})
	s.settle(ctx, room, winner, "timeout")
}

// OfferDraw records a pending draw offer and tells the room. A repeated
// offer from the same side just rebroadcasts.
func (s *Service) OfferDraw(roomID, playerID string) {
	room, exists := s.roomByID(roomID)
	if !exists {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.over {
		return
	}
	color := room.colorOf(playerID)
	if color == "" {
		return
	}

	room.drawOffer = color
	s.emit.ToRoom(room.ID, "drawOffered", drawOfferedPayload{From: color})
}

// AcceptDraw ends the game as a draw when the opponent has an offer
// pending. Accepting your own offer does nothing.
func (s *Service) AcceptDraw(ctx context.Context, roomID, playerID string) {
	room, exists := s.roomByID(roomID)
	if !exists {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.over {
		return
	}
	color := room.colorOf(playerID)
	if color == "" {
		return
	}
	if room.drawOffer == "" || room.drawOffer == color {
		return
	}

	room.over = true
	room.drawOffer = ""
	s.emit.ToRoom(room.ID, "gameOver", gameOverPayload{Reason: "draw"})
	s.settle(ctx, room, "", "draw")
}

// DeclineDraw clears a pending offer and tells the room who declined.
// Either seated player may clear it, so an offerer can retract their own
// offer this way.
func (s *Service) DeclineDraw(roomID, playerID string) {
	room, exists := s.roomByID(roomID)
	if !exists {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.over || room.drawOffer == "" {
		return
	}
	color := room.colorOf(playerID)
	if color == "" {
		return
	}

	room.drawOffer = ""
	s.emit.ToRoom(room.ID, "drawDeclined", drawDeclinedPayload{By: color})
}

// SetName updates the player's display name and rebroadcasts the name map.
func (s *Service) SetName(roomID, playerID, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	room, exists := s.roomByID(roomID)
	if !exists {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	color := room.colorOf(playerID)
	if color == "" {
		return
	}
	room.slot(color).Name = name
	s.emit.ToRoom(room.ID, "playerNames", room.namesPayload())
}

// SendChat relays a chat line to the room. Spectators may chat too; blank
// messages are dropped.
func (s *Service) SendChat(roomID, playerID, name, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	room, exists := s.roomByID(roomID)
	if !exists {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if name == "" {
		if color := room.colorOf(playerID); color != "" {
			name = room.slot(color).Name
		}
	}
	if name == "" {
		name = "Anonymous"
	}
	s.emit.ToRoom(room.ID, "chatMessage", chatMessagePayload{
		Text: text,
		Name: name,
		TS:   time.Now().UnixMilli(),
	})
}
