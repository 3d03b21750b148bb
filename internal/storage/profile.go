package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iwanyu/marketplace/internal/domain/models"
)

var ErrProfileNotFound = errors.New("profile not found")

// ProfileStorage описывает методы для работы с таблицей профилей.
type ProfileStorage interface {
	GetProfileByID(ctx context.Context, id int64) (*models.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
	CreateProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error)
	UpdatePassword(ctx context.Context, id int64, passHash []byte) error
	SetActive(ctx context.Context, id int64, active bool) error
	ListProfiles(ctx context.Context, role models.Role) ([]*models.Profile, error)
}

type profileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) ProfileStorage {
	return &profileRepository{db: db}
}

const profileColumns = "id, email, full_name, pass_hash, role, active, created_at"

func scanProfile(row interface{ Scan(...any) error }) (*models.Profile, error) {
	p := &models.Profile{}
	if err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.PassHash, &p.Role, &p.Active, &p.CreatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *profileRepository) GetProfileByID(ctx context.Context, id int64) (*models.Profile, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+profileColumns+" FROM profiles WHERE id = $1", id)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *profileRepository) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+profileColumns+" FROM profiles WHERE email = $1", email)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *profileRepository) CreateProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO profiles (email, full_name, pass_hash, role, active) VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at",
		profile.Email, profile.FullName, profile.PassHash, profile.Role, profile.Active,
	).Scan(&profile.ID, &profile.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", translatePgError(err))
	}
	return profile, nil
}

func (r *profileRepository) UpdatePassword(ctx context.Context, id int64, passHash []byte) error {
	res, err := r.db.ExecContext(ctx, "UPDATE profiles SET pass_hash = $1 WHERE id = $2", passHash, id)
	if err != nil {
		return err
	}
	return expectAffected(res, ErrProfileNotFound)
}

func (r *profileRepository) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx, "UPDATE profiles SET active = $1 WHERE id = $2", active, id)
	if err != nil {
		return err
	}
	return expectAffected(res, ErrProfileNotFound)
}

// ListProfiles возвращает профили; пустая роль - все профили
func (r *profileRepository) ListProfiles(ctx context.Context, role models.Role) ([]*models.Profile, error) {
	query := "SELECT " + profileColumns + " FROM profiles"
	var args []any
	if role != "" {
		query += " WHERE role = $1"
		args = append(args, role)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return profiles, nil
}

// expectAffected возвращает notFound, если запрос не затронул ни одной строки
func expectAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
