// Package clients is the client directory: profile lookup and maintenance
// for named bookings. Walk-ins never touch it.
package clients

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog"

	"velora/internal/models"
	"velora/internal/store"
)

// Directory answers profile queries over the record store.
type Directory struct {
	db     *store.DB
	logger *zerolog.Logger
}

// New creates a directory over an opened database.
func New(db *store.DB, logger *zerolog.Logger) *Directory {
	return &Directory{db: db, logger: logger}
}

// FindByEmail returns the profile for the email, or nil when unknown.
func (d *Directory) FindByEmail(ctx context.Context, email string) (*models.Client, error) {
	query, args, err := sq.Select("id", "first_name", "last_name", "email", "phone", "created_at", "updated_at").
		From("clients").
		Where(sq.Eq{"email": email}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build client query: %w", err)
	}

	var c models.Client
	var firstName, lastName, mail, phone sql.NullString
	err = d.db.QueryRowContext(ctx, query, args...).
		Scan(&c.ID, &firstName, &lastName, &mail, &phone, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find client by email: %w", err)
	}
	c.FirstName = firstName.String
	c.LastName = lastName.String
	c.Email = mail.String
	c.Phone = phone.String
	return &c, nil
}

// Create inserts the profile and fills in its assigned id. An empty email is
// stored as NULL so the uniqueness constraint only binds real addresses.
func (d *Directory) Create(ctx context.Context, c *models.Client) error {
	query, args, err := sq.Insert("clients").
		Columns("first_name", "last_name", "email", "phone").
		Values(c.FirstName, c.LastName, nullable(c.Email), c.Phone).
		ToSql()
	if err != nil {
		return fmt.Errorf("build client insert: %w", err)
	}

	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("client id: %w", err)
	}
	d.logger.Info().Int64("client_id", c.ID).Msg("client profile created")
	return nil
}

// Update overwrites the profile fields.
func (d *Directory) Update(ctx context.Context, c *models.Client) error {
	query, args, err := sq.Update("clients").
		Set("first_name", c.FirstName).
		Set("last_name", c.LastName).
		Set("email", nullable(c.Email)).
		Set("phone", c.Phone).
		Set("updated_at", sq.Expr("CURRENT_TIMESTAMP")).
		Where(sq.Eq{"id": c.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build client update: %w", err)
	}

	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update client %d: %w", c.ID, err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
