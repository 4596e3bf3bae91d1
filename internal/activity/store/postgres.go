package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"luckdraw/internal/activity/models"
	"luckdraw/pkg/domain"
	"luckdraw/pkg/platform/sentinel"
)

// PostgresStore persists activities in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed activity store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const activityColumns = `id, title, content, deadline, winners_count, max_registrants,
	is_published, creator_id, registration_count, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, activity *models.Activity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (`+activityColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		uuid.UUID(activity.ID), activity.Title, activity.Content, activity.Deadline,
		activity.WinnersCount, activity.MaxRegistrants, activity.IsPublished,
		uuid.UUID(activity.CreatorID), activity.RegistrationCount,
		activity.CreatedAt, activity.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.ActivityID) (*models.Activity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+activityColumns+` FROM activities WHERE id = $1`, uuid.UUID(id))
	activity, err := scanActivity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find activity by id: %w", err)
	}
	return activity, nil
}

func (s *PostgresStore) List(ctx context.Context, publishedOnly bool) ([]*models.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities`
	if publishedOnly {
		query += ` WHERE is_published`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var out []*models.Activity
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, activity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, activity *models.Activity) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE activities
		SET title = $2, content = $3, deadline = $4, winners_count = $5,
		    max_registrants = $6, is_published = $7, updated_at = $8
		WHERE id = $1`,
		uuid.UUID(activity.ID), activity.Title, activity.Content, activity.Deadline,
		activity.WinnersCount, activity.MaxRegistrants, activity.IsPublished,
		activity.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update activity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update activity: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Delete removes an activity. Deleting a missing id is not an error.
func (s *PostgresStore) Delete(ctx context.Context, id domain.ActivityID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM activities WHERE id = $1`, uuid.UUID(id)); err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	return nil
}

// IncrementRegistrationCount adjusts the denormalized back-reference.
func (s *PostgresStore) IncrementRegistrationCount(ctx context.Context, id domain.ActivityID, delta int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE activities
		SET registration_count = GREATEST(registration_count + $2, 0)
		WHERE id = $1`, uuid.UUID(id), delta)
	if err != nil {
		return fmt.Errorf("increment registration count: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment registration count: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row rowScanner) (*models.Activity, error) {
	var a models.Activity
	var id, creatorID uuid.UUID
	if err := row.Scan(
		&id, &a.Title, &a.Content, &a.Deadline, &a.WinnersCount, &a.MaxRegistrants,
		&a.IsPublished, &creatorID, &a.RegistrationCount, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.ID = domain.ActivityID(id)
	a.CreatorID = domain.PrincipalID(creatorID)
	return &a, nil
}

// isUniqueViolation detects Postgres error 23505 through the pgx driver.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
