package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/aydinberk/sumchat/internal/models"
)

// ==========================
// TranscriptRepo
// ==========================
type TranscriptRepo struct {
	DB *sql.DB
}

func NewTranscriptRepo(db *sql.DB) *TranscriptRepo {
	return &TranscriptRepo{DB: db}
}

// ==========================
// Save Transcript
// ==========================
func (r *TranscriptRepo) Save(ctx context.Context, userID int, prompt, reply, style string) (*models.Transcript, error) {
	query := `
		INSERT INTO transcripts (user_id, prompt, reply, style)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, prompt, reply, style, created_at
	`

	tr := &models.Transcript{}

	err := r.DB.QueryRowContext(ctx, query, userID, prompt, reply, style).
		Scan(&tr.ID, &tr.UserID, &tr.Prompt, &tr.Reply, &tr.Style, &tr.CreatedAt)

	if err != nil {
		return nil, err
	}

	return tr, nil
}

// ==========================
// List By User
// ==========================
func (r *TranscriptRepo) ListByUser(ctx context.Context, userID, limit int) ([]models.Transcript, error) {
	query := `
		SELECT id, user_id, prompt, reply, style, created_at
		FROM transcripts
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transcript
	for rows.Next() {
		var tr models.Transcript
		if err := rows.Scan(&tr.ID, &tr.UserID, &tr.Prompt, &tr.Reply, &tr.Style, &tr.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, tr)
	}

	return out, rows.Err()
}

// ==========================
// Delete Older Than
// ==========================
// DeleteOlderThan removes transcripts created before cutoff and returns how
// many rows were pruned. Used by the retention scheduler.
func (r *TranscriptRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM transcripts WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
