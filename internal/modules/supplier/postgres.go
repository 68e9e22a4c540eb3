package supplier

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository creates a new PostgreSQL supplier repository.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) CreateSupplier(ctx context.Context, s *Supplier) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO suppliers (id, name, contact_person, phone, email, is_active)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		s.ID, s.Name, s.ContactPerson, s.Phone, s.Email, s.IsActive)
	return err
}

func (r *postgresRepo) GetSupplierByID(ctx context.Context, id string) (*Supplier, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	s := &Supplier{}
	err = r.db.QueryRowContext(ctx, `
		SELECT id, name, contact_person, phone, email, is_active, created_at, updated_at
		FROM suppliers WHERE id=$1`, uid).
		Scan(&s.ID, &s.Name, &s.ContactPerson, &s.Phone, &s.Email,
			&s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *postgresRepo) ListSuppliers(ctx context.Context) ([]*Supplier, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, contact_person, phone, email, is_active, created_at, updated_at
		FROM suppliers WHERE is_active ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var suppliers []*Supplier
	for rows.Next() {
		s := &Supplier{}
		if err := rows.Scan(&s.ID, &s.Name, &s.ContactPerson, &s.Phone, &s.Email,
			&s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, nil
}
