package telegram

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Link associates a Telegram user with the phone number of a MediDiet account.
type Link struct {
	TelegramUserID int64
	ChatID         int64
	Phone          string
	CreatedAt      time.Time
}

// LinkRepository provides access to link persistence operations
type LinkRepository struct {
	db *sql.DB
}

// NewLinkRepository creates a new LinkRepository instance
func NewLinkRepository(db *sql.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

// Save creates or replaces the link for a Telegram user
func (lr *LinkRepository) Save(ctx context.Context, l Link) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	_, err := lr.db.ExecContext(ctx, `
		INSERT INTO telegram_links (telegram_user_id, chat_id, phone, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(telegram_user_id) DO UPDATE SET
			chat_id = excluded.chat_id,
			phone = excluded.phone,
			created_at = excluded.created_at`,
		l.TelegramUserID, l.ChatID, l.Phone, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save telegram link: %w", err)
	}
	return nil
}

// Get retrieves the link for a Telegram user, or nil if there is none
func (lr *LinkRepository) Get(ctx context.Context, telegramUserID int64) (*Link, error) {
	var l Link
	err := lr.db.QueryRowContext(ctx, `
		SELECT telegram_user_id, chat_id, phone, created_at
		FROM telegram_links WHERE telegram_user_id = ?`, telegramUserID,
	).Scan(&l.TelegramUserID, &l.ChatID, &l.Phone, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load telegram link: %w", err)
	}
	return &l, nil
}

// Delete removes a link and reports whether one existed
func (lr *LinkRepository) Delete(ctx context.Context, telegramUserID int64) (bool, error) {
	res, err := lr.db.ExecContext(ctx, `DELETE FROM telegram_links WHERE telegram_user_id = ?`, telegramUserID)
	if err != nil {
		return false, fmt.Errorf("failed to delete telegram link: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
