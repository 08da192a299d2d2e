package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"tubebrief/errors"
	"tubebrief/repository"
)

const (
	selectKeysQuery    = `SELECT key FROM api_keys ORDER BY position`
	deleteKeysQuery    = `DELETE FROM api_keys`
	insertKeyQuery     = `INSERT INTO api_keys (position, key) VALUES (?, ?)`
	selectSettingQuery = `SELECT value FROM settings WHERE name = ?`
	upsertSettingQuery = `
        INSERT INTO settings (name, value) VALUES (?, ?)
        ON CONFLICT(name) DO UPDATE SET value = excluded.value`
	deleteSettingQuery = `DELETE FROM settings WHERE name = ?`

	customPromptSetting = "custom_prompt"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) (*Repository, error) {
	return &Repository{db: db}, nil
}

func (r *Repository) APIKeys(ctx context.Context) ([]string, error) {
	const op = "SQLiteRepository.APIKeys"

	rows, err := r.db.QueryContext(ctx, selectKeysQuery)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to query API keys")
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, errors.Internal(op, err, "Failed to scan API key")
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal(op, err, "Failed to read API keys")
	}
	return keys, nil
}

func (r *Repository) SaveAPIKeys(ctx context.Context, keys []string) error {
	const op = "SQLiteRepository.SaveAPIKeys"

	normalized := repository.NormalizeKeys(keys)

	for i := 0; i < 3; i++ { // Simple retry logic
		err := r.saveKeys(ctx, normalized)
		if err == nil {
			return nil
		}
		if !isLockError(err) {
			return errors.Internal(op, err, "Failed to save API keys")
		}
		time.Sleep(time.Second * time.Duration(i+1))
	}
	return errors.Internal(op, nil, "Failed after retries")
}

func (r *Repository) saveKeys(ctx context.Context, keys []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, deleteKeysQuery); err != nil {
		return err
	}
	for i, key := range keys {
		if _, err := tx.ExecContext(ctx, insertKeyQuery, i, key); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *Repository) CustomPrompt(ctx context.Context) (string, error) {
	const op = "SQLiteRepository.CustomPrompt"

	var value string
	err := r.db.QueryRowContext(ctx, selectSettingQuery, customPromptSetting).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.Internal(op, err, "Failed to query custom prompt")
	}
	return value, nil
}

func (r *Repository) SaveCustomPrompt(ctx context.Context, template string) error {
	const op = "SQLiteRepository.SaveCustomPrompt"

	var err error
	if strings.TrimSpace(template) == "" {
		_, err = r.db.ExecContext(ctx, deleteSettingQuery, customPromptSetting)
	} else {
		_, err = r.db.ExecContext(ctx, upsertSettingQuery, customPromptSetting, template)
	}
	if err != nil {
		return errors.Internal(op, err, "Failed to save custom prompt")
	}
	return nil
}

func isLockError(err error) bool {
	return strings.Contains(err.Error(), "database is locked") ||
		strings.Contains(err.Error(), "busy")
}
