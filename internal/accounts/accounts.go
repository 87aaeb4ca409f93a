package accounts

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/jmoiron/sqlx"
	"github.com/platinumchess/backend/internal/models"
)

// Store is the persistent account surface the game engine depends on:
// balance reads/writes, the transaction ledger, game history and username
// lookup. The engine treats it as an external service; tests substitute an
// in-memory implementation.
type Store interface {
	GetBalanceUSD(ctx context.Context, userID string) (float64, error)
	SetBalanceUSD(ctx context.Context, userID string, next float64) error
	InsertTransaction(ctx context.Context, txType, userID string, amountUSD float64, roomID string) error
	RecordGame(ctx context.Context, g models.Game) error
	ResolveUsername(ctx context.Context, userID string) (string, error)
}

// SQLStore implements Store on Postgres.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) GetBalanceUSD(ctx context.Context, userID string) (float64, error) {
	var balance float64
	err := s.db.GetContext(ctx, &balance, `SELECT balance_usd FROM profiles WHERE id=$1`, userID)
	if err != nil {
		return 0, fmt.Errorf("get balance for %s: %w", userID, err)
	}
	return balance, nil
}

func (s *SQLStore) SetBalanceUSD(ctx context.Context, userID string, next float64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE profiles SET balance_usd=$1, updated_at=NOW() WHERE id=$2`, next, userID)
	if err != nil {
		return fmt.Errorf("set balance for %s: %w", userID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("set balance for %s: profile not found", userID)
	}
	return nil
}

func (s *SQLStore) InsertTransaction(ctx context.Context, txType, userID string, amountUSD float64, roomID string) error {
	room := sql.NullString{String: roomID, Valid: roomID != ""}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (type, user_id, amount_usd, room_id, status, created_at) VALUES ($1,$2,$3,$4,'complete',NOW())`,
		txType, userID, amountUSD, room)
	return err
}

func (s *SQLStore) RecordGame(ctx context.Context, g models.Game) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO games (room_id, white_id, black_id, winner_id, loser_id, stake_usd, pot_usd, result, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW())`,
		g.RoomID, g.WhiteID, g.BlackID, g.WinnerID, g.LoserID, g.StakeUSD, g.PotUSD, g.Result)
	return err
}

func (s *SQLStore) ResolveUsername(ctx context.Context, userID string) (string, error) {
	var username string
	err := s.db.GetContext(ctx, &username, `SELECT username FROM profiles WHERE id=$1`, userID)
	if err != nil {
		return "", err
	}
	return username, nil
}

// CreditDeposit applies a completed deposit: reads the current balance,
// adds the amount and writes the new balance plus a deposit transaction.
// Used by the payment webhook, not by the game engine.
func (s *SQLStore) CreditDeposit(ctx context.Context, userID string, amountUSD float64, pfPaymentID string) error {
	balance, err := s.GetBalanceUSD(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.SetBalanceUSD(ctx, userID, round2(balance+amountUSD)); err != nil {
		return err
	}
	pfID := sql.NullString{String: pfPaymentID, Valid: pfPaymentID != ""}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO transactions (type, user_id, amount_usd, pf_payment_id, status, created_at) VALUES ($1,$2,$3,$4,'complete',NOW())`,
		models.TxDeposit, userID, amountUSD, pfID)
	return err
}

type recentGameRow struct {
	models.Game
	OpponentName sql.NullString `db:"opponent_name"`
}

// RecentGames returns a page of finished games for a user, newest first,
// each row viewed from that user's side: opponent identity resolved to a
// username and the signed balance change (+pot on a win, -stake on a loss,
// 0 on a draw).
func (s *SQLStore) RecentGames(ctx context.Context, userID string, limit, offset int) ([]models.GameSummary, error) {
	var rows []recentGameRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT g.id, g.room_id, g.white_id, g.black_id, g.winner_id, g.loser_id,
		        g.stake_usd, g.pot_usd, g.result, g.created_at,
		        p.username AS opponent_name
		 FROM games g
		 LEFT JOIN profiles p
		   ON p.id = CASE WHEN g.white_id = $1 THEN g.black_id ELSE g.white_id END
		 WHERE g.white_id=$1 OR g.black_id=$1
		 ORDER BY g.created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.GameSummary, 0, len(rows))
	for _, r := range rows {
		opponentID := r.WhiteID.String
		if r.WhiteID.String == userID {
			opponentID = r.BlackID.String
		}
		summaries = append(summaries, models.GameSummary{
			RoomID:       r.RoomID,
			OpponentID:   opponentID,
			OpponentName: opponentDisplayName(r.OpponentName.String, opponentID),
			StakeUSD:     r.StakeUSD.Float64,
			PotUSD:       r.PotUSD.Float64,
			Result:       r.Result,
			DeltaUSD:     gameDelta(r.Game, userID),
			CreatedAt:    r.CreatedAt,
		})
	}
	return summaries, nil
}

func opponentDisplayName(username, opponentID string) string {
	if username != "" {
		return username
	}
	if opponentID == "" {
		return "Opponent"
	}
	if len(opponentID) > 8 {
		return opponentID[:8]
	}
	return opponentID
}

func gameDelta(g models.Game, userID string) float64 {
	if g.Result == "draw" {
		return 0
	}
	if g.WinnerID.Valid && g.WinnerID.String == userID {
		return round2(g.StakeUSD.Float64 * 2)
	}
	if g.LoserID.Valid && g.LoserID.String == userID {
		return -g.StakeUSD.Float64
	}
	return 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
