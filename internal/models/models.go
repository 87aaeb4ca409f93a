package models

import (
	"database/sql"
	"time"
)

// Profile represents a registered user and their platform balance
type Profile struct {
	ID         string    `db:"id" json:"id"`
	Username   string    `db:"username" json:"username"`
	BalanceUSD float64   `db:"balance_usd" json:"balance_usd"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Transaction represents a money movement (deposit, stake debit/refund/payout)
type Transaction struct {
	ID          int            `db:"id" json:"id"`
	Type        string         `db:"type" json:"type"`
	UserID      string         `db:"user_id" json:"user_id"`
	AmountUSD   float64        `db:"amount_usd" json:"amount_usd"`
	RoomID      sql.NullString `db:"room_id" json:"room_id,omitempty"`
	PFPaymentID sql.NullString `db:"pf_payment_id" json:"pf_payment_id,omitempty"`
	Status      string         `db:"status" json:"status"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// Transaction types written to the ledger
const (
	TxDeposit     = "deposit"
	TxStakeDebit  = "stake_debit"
	TxStakeRefund = "stake_refund"
	TxStakePayout = "stake_payout"
)

// Game represents a completed game's history record
type Game struct {
	ID        int             `db:"id" json:"id"`
	RoomID    string          `db:"room_id" json:"room_id"`
	WhiteID   sql.NullString  `db:"white_id" json:"white_id,omitempty"`
	BlackID   sql.NullString  `db:"black_id" json:"black_id,omitempty"`
	WinnerID  sql.NullString  `db:"winner_id" json:"winner_id,omitempty"`
	LoserID   sql.NullString  `db:"loser_id" json:"loser_id,omitempty"`
	StakeUSD  sql.NullFloat64 `db:"stake_usd" json:"stake_usd,omitempty"`
	PotUSD    sql.NullFloat64 `db:"pot_usd" json:"pot_usd,omitempty"`
	Result    string          `db:"result" json:"result"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// GameSummary is one row of a player's game history, viewed from that
// player's side: who they played, what they staked and how their balance
// moved (+pot on a win, -stake on a loss, 0 on a draw).
type GameSummary struct {
	RoomID       string    `json:"roomId"`
	OpponentID   string    `json:"opponentId"`
	OpponentName string    `json:"opponentName"`
	StakeUSD     float64   `json:"stakeUsd"`
	PotUSD       float64   `json:"potUsd"`
	Result       string    `json:"result"`
	DeltaUSD     float64   `json:"deltaUsd"`
	CreatedAt    time.Time `json:"createdAt"`
}

// AdminAccount represents a backoffice operator
type AdminAccount struct {
	Username    string    `db:"username" json:"username"`
	DisplayName string    `db:"display_name" json:"display_name"`
	TokenHash   string    `db:"token_hash" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// AdminAudit records an admin action for the audit trail
type AdminAudit struct {
	ID        int       `db:"id" json:"id"`
	AdminUser string    `db:"admin_user" json:"admin_user"`
	IP        string    `db:"ip" json:"ip"`
	Route     string    `db:"route" json:"route"`
	Action    string    `db:"action" json:"action"`
	Details   []byte    `db:"details" json:"details,omitempty"`
	Success   bool      `db:"success" json:"success"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
