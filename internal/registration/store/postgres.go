package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"luckdraw/internal/registration/models"
	"luckdraw/pkg/domain"
	"luckdraw/pkg/platform/sentinel"
)

// PostgresStore persists registrations in PostgreSQL. The unique index on
// (activity_id, phone) is the authoritative duplicate-phone constraint;
// Create surfaces it as sentinel.ErrConflict.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed registration store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const registrationColumns = `id, activity_id, name, phone, is_winner, client_ip, device, created_at`

func (s *PostgresStore) Create(ctx context.Context, reg *models.Registration) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO registrations (`+registrationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.UUID(reg.ID), uuid.UUID(reg.ActivityID), reg.Name, reg.Phone,
		reg.IsWinner, reg.ClientIP, reg.Device, reg.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.RegistrationID) (*models.Registration, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, uuid.UUID(id))
	reg, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find registration by id: %w", err)
	}
	return reg, nil
}

func (s *PostgresStore) ListByActivity(ctx context.Context, activityID domain.ActivityID) ([]*models.Registration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+registrationColumns+` FROM registrations
		WHERE activity_id = $1
		ORDER BY created_at`, uuid.UUID(activityID))
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var out []*models.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		out = append(out, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CountByActivity(ctx context.Context, activityID domain.ActivityID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM registrations WHERE activity_id = $1`,
		uuid.UUID(activityID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) CountByActivityAndPhone(ctx context.Context, activityID domain.ActivityID, phone string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM registrations WHERE activity_id = $1 AND phone = $2`,
		uuid.UUID(activityID), phone).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count registrations by phone: %w", err)
	}
	return n, nil
}

// SetWinner flips the winner flag on a single registration. This is a
// per-record atomic write; the draw engine issues one per registration.
func (s *PostgresStore) SetWinner(ctx context.Context, id domain.RegistrationID, isWinner bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE registrations SET is_winner = $2 WHERE id = $1`,
		uuid.UUID(id), isWinner)
	if err != nil {
		return fmt.Errorf("set winner: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set winner: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// DeleteByActivity removes every registration of an activity.
func (s *PostgresStore) DeleteByActivity(ctx context.Context, activityID domain.ActivityID) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM registrations WHERE activity_id = $1`, uuid.UUID(activityID))
	if err != nil {
		return 0, fmt.Errorf("delete registrations: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete registrations: %w", err)
	}
	return int(affected), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*models.Registration, error) {
	var r models.Registration
	var id, activityID uuid.UUID
	if err := row.Scan(
		&id, &activityID, &r.Name, &r.Phone, &r.IsWinner,
		&r.ClientIP, &r.Device, &r.CreatedAt,
	); err != nil {
		return nil, err
	}
	r.ID = domain.RegistrationID(id)
	r.ActivityID = domain.ActivityID(activityID)
	return &r, nil
}
