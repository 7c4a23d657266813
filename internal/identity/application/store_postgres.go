// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package application

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/kreativeid/internal/platform/apperr"
	"github.com/taibuivan/kreativeid/internal/platform/dberr"
	"github.com/taibuivan/kreativeid/internal/platform/postgres"
)

// # Repository Implementation

// PostgresRepository implements [Repository] on the applications table.
type PostgresRepository struct {
	db postgres.DBTX
}

// NewPostgresRepository creates a new Postgres application repository.
func NewPostgresRepository(db postgres.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const applicationColumns = `aidn, name, callback_url, homepage, description, logo_url, icon_url, appchain, created_at`

func scanApplication(row pgx.Row) (*Application, error) {
	application := &Application{}
	err := row.Scan(
		&application.AIDN,
		&application.Name,
		&application.CallbackURL,
		&application.Homepage,
		&application.Description,
		&application.LogoURL,
		&application.IconURL,
		&application.Appchain,
		&application.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return application, nil
}

// FindByAIDN retrieves an application by its id.
func (repository *PostgresRepository) FindByAIDN(context context.Context, aidn int64) (*Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE aidn = $1`

	application, err := scanApplication(repository.db.QueryRow(context, query, aidn))
	if err != nil {
		return nil, dberr.Wrap(err, "Application")
	}
	return application, nil
}

// FindByAppchain retrieves an application by its secret.
func (repository *PostgresRepository) FindByAppchain(context context.Context, appchain string) (*Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE appchain = $1`

	application, err := scanApplication(repository.db.QueryRow(context, query, appchain))
	if err != nil {
		return nil, dberr.Wrap(err, "Application")
	}
	return application, nil
}

/*
List returns every application, oldest first.

Returns:
  - []*Application: All rows (empty slice when none)
  - error: Database execution failure
*/
func (repository *PostgresRepository) List(context context.Context) ([]*Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications ORDER BY created_at ASC, aidn ASC`

	rows, err := repository.db.Query(context, query)
	if err != nil {
		return nil, dberr.Wrap(err, "Application")
	}
	defer rows.Close()

	applications := make([]*Application, 0)
	for rows.Next() {
		application, err := scanApplication(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "Application")
		}
		applications = append(applications, application)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "Application")
	}
	return applications, nil
}

// Create inserts a new application and back-fills created_at.
func (repository *PostgresRepository) Create(context context.Context, application *Application) error {
	const query = `
		INSERT INTO applications (aidn, name, callback_url, homepage, description, logo_url, icon_url, appchain)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	err := repository.db.QueryRow(context, query,
		application.AIDN,
		application.Name,
		application.CallbackURL,
		application.Homepage,
		application.Description,
		application.LogoURL,
		application.IconURL,
		application.Appchain,
	).Scan(&application.CreatedAt)

	if err != nil {
		return dberr.Wrap(err, "Application")
	}
	return nil
}

// Update rewrites the descriptive columns.
func (repository *PostgresRepository) Update(context context.Context, application *Application) error {
	const query = `
		UPDATE applications
		SET name = $2, callback_url = $3, homepage = $4, description = $5, logo_url = $6, icon_url = $7
		WHERE aidn = $1`

	return repository.exec(context, query,
		application.AIDN,
		application.Name,
		application.CallbackURL,
		application.Homepage,
		application.Description,
		application.LogoURL,
		application.IconURL,
	)
}

// UpdateAppchain replaces the shared secret.
func (repository *PostgresRepository) UpdateAppchain(context context.Context, aidn int64, appchain string) error {
	const query = `UPDATE applications SET appchain = $2 WHERE aidn = $1`
	return repository.exec(context, query, aidn, appchain)
}

// Delete removes the row; keychains cascade.
func (repository *PostgresRepository) Delete(context context.Context, aidn int64) error {
	const query = `DELETE FROM applications WHERE aidn = $1`
	return repository.exec(context, query, aidn)
}

func (repository *PostgresRepository) exec(context context.Context, query string, args ...any) error {
	tag, err := repository.db.Exec(context, query, args...)
	if err != nil {
		return dberr.Wrap(err, "Application")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Application").WithCause(fmt.Errorf("no application with aidn %v", args[0]))
	}
	return nil
}
