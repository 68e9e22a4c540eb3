package supplier

import (
	"context"

	"github.com/google/uuid"
)

type Service interface {
	AddSupplier(ctx context.Context, name, contactPerson, phone, email string) (*Supplier, error)
	GetSupplier(ctx context.Context, id string) (*Supplier, error)
	ListSuppliers(ctx context.Context) ([]*Supplier, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) AddSupplier(ctx context.Context, name, contactPerson, phone, email string) (*Supplier, error) {
	sup := &Supplier{
		ID:            uuid.New(),
		Name:          name,
		ContactPerson: contactPerson,
		Phone:         phone,
		Email:         email,
		IsActive:      true,
	}
	if err := s.repo.CreateSupplier(ctx, sup); err != nil {
		return nil, err
	}
	return sup, nil
}

func (s *service) GetSupplier(ctx context.Context, id string) (*Supplier, error) {
	return s.repo.GetSupplierByID(ctx, id)
}

func (s *service) ListSuppliers(ctx context.Context) ([]*Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}
