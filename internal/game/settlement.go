package game

import (
	"context"
	"database/sql"
	"log"

	"github.com/platinumchess/backend/internal/models"
)

// settle releases the escrowed pot once a game ends: the full pot to the
// winner on a decisive result, each player's own stake back on a draw.
// Settlement is best-effort; a failed transfer is logged and the game
// record still written so the ledger can be reconciled later. Caller holds
// room.mu and the room is already marked over, so settle runs exactly once.
func (s *Service) settle(ctx context.Context, room *Room, winner Color, reason string) {
	if room.stakeEachUSD <= 0 {
		s.recordGame(ctx, room, winner, reason)
		return
	}

	if winner == "" {
		for _, color := range []Color{White, Black} {
			slot := room.slot(color)
			if slot == nil || slot.AccountID == "" {
				continue
			}
			if err := s.escrow.Refund(ctx, slot.AccountID, room.stakeEachUSD, room.ID); err != nil {
				log.Printf("[SETTLE] Refund failed in room %s for %s: %v", room.ID, slot.AccountID, err)
			}
		}
		s.recordGame(ctx, room, winner, reason)
		return
	}

	winSlot := room.slot(winner)
	if winSlot == nil || winSlot.AccountID == "" {
		log.Printf("[SETTLE] No funded winner seat in room %s, pot %.2f unreleased", room.ID, room.potUSD)
	} else if err := s.escrow.Payout(ctx, winSlot.AccountID, room.potUSD, room.ID); err != nil {
		log.Printf("[SETTLE] Payout failed in room %s for %s: %v", room.ID, winSlot.AccountID, err)
	}
	s.recordGame(ctx, room, winner, reason)
}

// recordGame persists the finished game for history queries. Caller holds
// room.mu.
func (s *Service) recordGame(ctx context.Context, room *Room, winner Color, reason string) {
	record := models.Game{
		RoomID: room.ID,
		Result: reason,
	}
	if room.white != nil && room.white.AccountID != "" {
		record.WhiteID = sql.NullString{String: room.white.AccountID, Valid: true}
	}
	if room.black != nil && room.black.AccountID != "" {
		record.BlackID = sql.NullString{String: room.black.AccountID, Valid: true}
	}
	if room.stakeEachUSD > 0 {
		record.StakeUSD = sql.NullFloat64{Float64: room.stakeEachUSD, Valid: true}
		record.PotUSD = sql.NullFloat64{Float64: room.potUSD, Valid: true}
	}
	if winner != "" {
		if slot := room.slot(winner); slot != nil && slot.AccountID != "" {
			record.WinnerID = sql.NullString{String: slot.AccountID, Valid: true}
		}
		if slot := room.slot(winner.Opponent()); slot != nil && slot.AccountID != "" {
			record.LoserID = sql.NullString{String: slot.AccountID, Valid: true}
		}
	}

	if err := s.store.RecordGame(ctx, record); err != nil {
		log.Printf("[SETTLE] Failed to record game %s: %v", room.ID, err)
	}
}
