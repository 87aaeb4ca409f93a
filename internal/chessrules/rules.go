package chessrules

import (
	"errors"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Color identifies a chess side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

// Outcome classifies a finished position.
type Outcome string

const (
	OutcomeCheckmate    Outcome = "checkmate"
	OutcomeStalemate    Outcome = "stalemate"
	OutcomeThreefold    Outcome = "threefold"
	OutcomeInsufficient Outcome = "insufficient"
	OutcomeDraw         Outcome = "draw"
)

// Decisive reports whether the outcome has a winner. Of the board-derived
// outcomes only checkmate does; everything else is a draw variant.
func (o Outcome) Decisive() bool { return o == OutcomeCheckmate }

// ErrIllegalMove is returned for any move the rules engine rejects,
// including malformed coordinates.
var ErrIllegalMove = errors.New("illegal move")

// Move is an applied move together with its notation and the position it
// produced.
type Move struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
	SAN       string `json:"san"`
	FEN       string `json:"fen"`
}

// Board wraps the rules engine for a single game. It validates and applies
// candidate moves and classifies terminal positions; everything else (turn
// enforcement against player identity, stakes, clocks) lives above it.
type Board struct {
	game *nchess.Game
}

// NewBoard returns a board at the standard starting position.
func NewBoard() *Board {
	return &Board{game: nchess.NewGame()}
}

// FEN returns the serialized current position.
func (b *Board) FEN() string {
	return b.game.FEN()
}

// Turn returns the side to move.
func (b *Board) Turn() Color {
	return colorFrom(b.game.Position().Turn())
}

// Apply validates (from, to, promotion) against the current position and
// applies it. Returns ErrIllegalMove on rejection; the position is
// unchanged in that case.
func (b *Board) Apply(from, to, promotion string) (Move, error) {
	uci := strings.ToLower(strings.TrimSpace(from) + strings.TrimSpace(to) + strings.TrimSpace(promotion))
	pos := b.game.Position()

	mv, err := (nchess.UCINotation{}).Decode(pos, uci)
	if err != nil {
		return Move{}, ErrIllegalMove
	}
	if err := b.game.Move(mv, nil); err != nil {
		return Move{}, ErrIllegalMove
	}
	san := (nchess.AlgebraicNotation{}).Encode(pos, mv)

	b.applyEligibleDraws()

	return Move{
		From:      strings.ToLower(strings.TrimSpace(from)),
		To:        strings.ToLower(strings.TrimSpace(to)),
		Promotion: strings.ToLower(strings.TrimSpace(promotion)),
		SAN:       san,
		FEN:       b.game.FEN(),
	}, nil
}

// applyEligibleDraws promotes claimable draws (threefold repetition,
// fifty-move rule) to a final outcome. Clients treat those positions as
// immediately over, so the server must agree.
func (b *Board) applyEligibleDraws() {
	if b.game.Outcome() != nchess.NoOutcome {
		return
	}
	for _, m := range b.game.EligibleDraws() {
		if m == nchess.ThreefoldRepetition || m == nchess.FiftyMoveRule {
			b.game.Draw(m)
			return
		}
	}
}

// Terminal reports whether the game has ended on the board and why.
// Resignation, timeout and draw agreement are signals from outside the
// board and are never reported here.
func (b *Board) Terminal() (Outcome, bool) {
	if b.game.Outcome() == nchess.NoOutcome {
		return "", false
	}
	switch b.game.Method() {
	case nchess.Checkmate:
		return OutcomeCheckmate, true
	case nchess.Stalemate:
		return OutcomeStalemate, true
	case nchess.ThreefoldRepetition, nchess.FivefoldRepetition:
		return OutcomeThreefold, true
	case nchess.InsufficientMaterial:
		return OutcomeInsufficient, true
	default:
		return OutcomeDraw, true
	}
}

func colorFrom(c nchess.Color) Color {
	if c == nchess.White {
		return White
	}
	return Black
}
