package services

import (
	"context"
	"errors"

	"strava-canteen/db"

	"github.com/jackc/pgx/v5"
)

// Account links a Telegram chat to a canteen login. The password is
// stored as given: the upstream login endpoint needs it replayed
// verbatim, so it cannot be hashed.
type Account struct {
	ChatID   int64
	Username string
	Password string
	Canteen  string
}

// SaveAccount inserts or replaces the linked account for a chat.
func SaveAccount(ctx context.Context, a Account) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO accounts (chat_id, username, password, canteen, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (chat_id) DO UPDATE SET
			username = EXCLUDED.username,
			password = EXCLUDED.password,
			canteen = EXCLUDED.canteen,
			updated_at = now()`,
		a.ChatID, a.Username, a.Password, a.Canteen,
	)
	return err
}

// GetAccount returns the linked account for a chat, or nil when the
// chat has none.
func GetAccount(ctx context.Context, chatID int64) (*Account, error) {
	a := Account{ChatID: chatID}
	err := db.Pool.QueryRow(ctx, `
		SELECT username, password, canteen FROM accounts WHERE chat_id = $1`,
		chatID,
	).Scan(&a.Username, &a.Password, &a.Canteen)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// DeleteAccount unlinks the chat.
func DeleteAccount(ctx context.Context, chatID int64) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM accounts WHERE chat_id = $1`, chatID)
	return err
}
