package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type Repository interface {
	// Load returns the row for storeID, or found=false when none exists.
	Load(ctx context.Context, storeID int64) (s Settings, found bool, err error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Load(ctx context.Context, storeID int64) (Settings, bool, error) {
	const q = `
		SELECT
			COALESCE(channel_id, ''),
			COALESCE(channel_secret_key, ''),
			COALESCE(picture_url, ''),
			COALESCE(locale, '')
		FROM linepay_settings
		WHERE store_id = $1
	`

	var s Settings
	err := r.db.QueryRowContext(ctx, q, storeID).Scan(
		&s.ChannelID,
		&s.ChannelSecret,
		&s.PictureURL,
		&s.Locale,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Settings{}, false, nil
	}
	if err != nil {
		return Settings{}, false, fmt.Errorf("load linepay settings for store %d: %w", storeID, err)
	}
	return s, true, nil
}
