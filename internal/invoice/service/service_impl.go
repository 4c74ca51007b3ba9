package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/autobill/internal/invoice/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("invoice.service"),
		repo: p.Repo,
	}
}

func (s *Service) FetchAll(ctx context.Context) ([]domain.Invoice, error) {
	return s.repo.List(ctx, s.db)
}

func (s *Service) Fetch(ctx context.Context, id snowflake.ID) (domain.Invoice, error) {
	if id == 0 {
		return domain.Invoice{}, domain.ErrInvalidID
	}
	invoice, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	if invoice == nil {
		return domain.Invoice{}, domain.ErrNotFound
	}
	return *invoice, nil
}

func (s *Service) FetchByStatus(ctx context.Context, status domain.InvoiceStatus) ([]domain.Invoice, error) {
	if !status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	return s.repo.ListByStatus(ctx, s.db, status)
}

func (s *Service) UpdateStatus(ctx context.Context, id snowflake.ID, status domain.InvoiceStatus) error {
	if id == 0 {
		return domain.ErrInvalidID
	}
	if !status.Valid() {
		return domain.ErrInvalidStatus
	}
	updated, err := s.repo.UpdateStatus(ctx, s.db, id, status)
	if err != nil {
		return err
	}
	if !updated {
		return domain.ErrNotFound
	}
	s.log.Debug("invoice.status.updated",
		zap.String("invoice_id", id.String()),
		zap.String("status", string(status)),
	)
	return nil
}
