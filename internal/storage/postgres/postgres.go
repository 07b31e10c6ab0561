// Package postgres is the persistence layer. Guard violations surface as
// sentinel errors so handlers can map them to HTTP status codes.
package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/sonam1711/innerve-mistribazaar/internal/models/user"

	"github.com/lib/pq"
)

var (
	ErrBadRequest   = errors.New("bad request")
	ErrUserNotFound = errors.New("user not found")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// uniqueViolation is the postgres error code raised by composite UNIQUE
// constraints; it backs the duplicate-submission guarantee under concurrency.
const uniqueViolation = "23505"

type Storage struct {
	db *sql.DB

	// strictStatus enforces the job status transition table; when false the
	// legacy owner-driven free transitions are allowed.
	strictStatus bool
}

func New(connStr string, strictStatus bool) (*Storage, error) {
	const op = "storage.postgres.New"

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username VARCHAR(100) UNIQUE NOT NULL,
			name VARCHAR(255) NOT NULL DEFAULT '',
			phone VARCHAR(20) NOT NULL DEFAULT '',
			role VARCHAR(15) NOT NULL,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			rating NUMERIC(3,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS contractor_profiles (
			user_id BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			company_name VARCHAR(255) NOT NULL DEFAULT '',
			is_available BOOLEAN NOT NULL DEFAULT TRUE
		);`,
		`CREATE TABLE IF NOT EXISTS trader_profiles (
			user_id BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			shop_name VARCHAR(255) NOT NULL DEFAULT '',
			is_available BOOLEAN NOT NULL DEFAULT TRUE
		);`,
		`CREATE TABLE IF NOT EXISTS mistri_profiles (
			user_id BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			skill VARCHAR(100) NOT NULL DEFAULT '',
			is_available BOOLEAN NOT NULL DEFAULT TRUE
		);`,
		`CREATE TABLE IF NOT EXISTS jobs (
			id BIGSERIAL PRIMARY KEY,
			consumer_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			category VARCHAR(10) NOT NULL,
			job_type VARCHAR(20) NOT NULL,
			title VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			budget_min NUMERIC(10,2) NOT NULL CHECK (budget_min >= 0),
			budget_max NUMERIC(10,2) NOT NULL CHECK (budget_max >= budget_min),
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			address TEXT NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL DEFAULT 'OPEN',
			selected_provider_id BIGINT REFERENCES users(id),
			deadline DATE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS bids (
			id BIGSERIAL PRIMARY KEY,
			job_id BIGINT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
			bidder_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			amount NUMERIC(10,2) NOT NULL CHECK (amount >= 0),
			estimated_days INT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (job_id, bidder_id)
		);`,
		`CREATE TABLE IF NOT EXISTS job_acceptances (
			id BIGSERIAL PRIMARY KEY,
			job_id BIGINT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
			mistri_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			status VARCHAR(20) NOT NULL,
			note TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (job_id, mistri_id)
		);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return &Storage{db: db, strictStatus: strictStatus}, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func (s *Storage) FetchUser(username string) (user.User, error) {
	const op = "storage.postgres.FetchUser"
	var (
		usr       user.User
		company   sql.NullString
		cAvail    sql.NullBool
		shop      sql.NullString
		tAvail    sql.NullBool
		skill     sql.NullString
		mAvail    sql.NullBool
	)

	err := s.db.QueryRow(`
	SELECT u.id, u.username, u.name, u.phone, u.role, u.latitude, u.longitude, u.rating, u.created_at,
	       cp.company_name, cp.is_available,
	       tp.shop_name, tp.is_available,
	       mp.skill, mp.is_available
	FROM users u
	LEFT JOIN contractor_profiles cp ON cp.user_id = u.id
	LEFT JOIN trader_profiles tp ON tp.user_id = u.id
	LEFT JOIN mistri_profiles mp ON mp.user_id = u.id
	WHERE u.username = $1
	`, username).Scan(
		&usr.Id, &usr.Username, &usr.Name, &usr.Phone, &usr.Role,
		&usr.Latitude, &usr.Longitude, &usr.Rating, &usr.CreatedAt,
		&company, &cAvail, &shop, &tAvail, &skill, &mAvail,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	if err != nil {
		return user.User{}, fmt.Errorf("%s: %w", op, err)
	}

	switch usr.Role {
	case user.RoleContractor:
		if cAvail.Valid {
			usr.Profile = user.ContractorProfile{CompanyName: company.String, IsAvailable: cAvail.Bool}
		}
	case user.RoleTrader:
		if tAvail.Valid {
			usr.Profile = user.TraderProfile{ShopName: shop.String, IsAvailable: tAvail.Bool}
		}
	case user.RoleMistri:
		if mAvail.Valid {
			usr.Profile = user.MistriProfile{Skill: skill.String, IsAvailable: mAvail.Bool}
		}
	}

	return usr, nil
}

// ReadAvailableMistris returns mistris with a location on file whose profile
// marks them available, for job notification fan-out.
func (s *Storage) ReadAvailableMistris() ([]user.User, error) {
	const op = "storage.postgres.ReadAvailableMistris"
	result := make([]user.User, 0)

	rows, err := s.db.Query(`
	SELECT u.id, u.username, u.name, u.phone, u.role, u.latitude, u.longitude, u.rating, u.created_at,
	       mp.skill, mp.is_available
	FROM users u
	INNER JOIN mistri_profiles mp ON mp.user_id = u.id
	WHERE u.role = 'MISTRI'
	  AND mp.is_available
	  AND u.latitude IS NOT NULL
	  AND u.longitude IS NOT NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			usr   user.User
			skill string
			avail bool
		)
		err := rows.Scan(
			&usr.Id, &usr.Username, &usr.Name, &usr.Phone, &usr.Role,
			&usr.Latitude, &usr.Longitude, &usr.Rating, &usr.CreatedAt,
			&skill, &avail,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		usr.Profile = user.MistriProfile{Skill: skill, IsAvailable: avail}
		result = append(result, usr)
	}

	return result, nil
}
