package game

import (
	"sync"
	"time"

	"github.com/platinumchess/backend/internal/chessrules"
)

// PlayerSlot tracks one seat in a room. SessionID is refreshed on
// reconnect; AccountID links the seat to a funded profile for settlement.
type PlayerSlot struct {
	PlayerID  string
	SessionID string
	AccountID string
	Name      string
}

// Room is a single two-player game. All mutation happens under mu, so each
// room processes one operation at a time while other rooms run in parallel.
type Room struct {
	ID string

	mu        sync.Mutex
	board     *chessrules.Board
	white     *PlayerSlot
	black     *PlayerSlot
	history   []chessrules.Move
	createdAt time.Time

	timeControl  string
	over         bool
	drawOffer    Color // side with a pending offer, "" when none
	stakeEachUSD float64
	potUSD       float64
}

func newRoom(roomID string) *Room {
	return &Room{
		ID:        roomID,
		board:     chessrules.NewBoard(),
		history:   []chessrules.Move{},
		createdAt: time.Now(),
	}
}

// colorOf returns the seat held by playerID, or "" when the player is a
// spectator. Caller holds room.mu.
func (r *Room) colorOf(playerID string) Color {
	if r.white != nil && r.white.PlayerID == playerID {
		return White
	}
	if r.black != nil && r.black.PlayerID == playerID {
		return Black
	}
	return ""
}

// slot returns the seat for a color. Caller holds room.mu.
func (r *Room) slot(color Color) *PlayerSlot {
	switch color {
	case White:
		return r.white
	case Black:
		return r.black
	}
	return nil
}

type playersPayload struct {
	White string `json:"white,omitempty"`
	Black string `json:"black,omitempty"`
}

type statePayload struct {
	RoomID       string            `json:"roomId"`
	FEN          string            `json:"fen"`
	Turn         Color             `json:"turn"`
	History      []chessrules.Move `json:"history"`
	Players      playersPayload    `json:"players"`
	TimeControl  string            `json:"timeControl,omitempty"`
	StakeEachUSD float64           `json:"stakeEachUsd"`
	StakePotUSD  float64           `json:"stakePotUsd"`
}

// statePayload builds the full resync snapshot. Caller holds room.mu.
func (r *Room) statePayload() statePayload {
	players := playersPayload{}
	if r.white != nil {
		players.White = r.white.PlayerID
	}
	if r.black != nil {
		players.Black = r.black.PlayerID
	}
	return statePayload{
		RoomID:       r.ID,
		FEN:          r.board.FEN(),
		Turn:         r.board.Turn(),
		History:      append([]chessrules.Move{}, r.history...),
		Players:      players,
		TimeControl:  r.timeControl,
		StakeEachUSD: r.stakeEachUSD,
		StakePotUSD:  r.potUSD,
	}
}

type namesPayload struct {
	White string `json:"white,omitempty"`
	Black string `json:"black,omitempty"`
}

// namesPayload builds the display-name map. Caller holds room.mu.
func (r *Room) namesPayload() namesPayload {
	names := namesPayload{}
	if r.white != nil {
		names.White = r.white.Name
	}
	if r.black != nil {
		names.Black = r.black.Name
	}
	return names
}
