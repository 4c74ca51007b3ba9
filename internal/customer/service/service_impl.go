package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/autobill/internal/cache"
	"github.com/smallbiznis/autobill/internal/customer/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Repo  domain.Repository
	Cache cache.CustomerCache `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	repo  domain.Repository
	cache cache.CustomerCache
}

func New(p Params) domain.Service {
	return &Service{db: p.DB, repo: p.Repo, cache: p.Cache}
}

func (s *Service) FetchAll(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.List(ctx, s.db)
}

func (s *Service) Fetch(ctx context.Context, id snowflake.ID) (domain.Customer, error) {
	if id == 0 {
		return domain.Customer{}, domain.ErrInvalidID
	}
	if s.cache != nil {
		if customer, ok := s.cache.GetCustomer(id); ok {
			return customer, nil
		}
	}
	customer, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if customer == nil {
		return domain.Customer{}, domain.ErrNotFound
	}
	if s.cache != nil {
		s.cache.SetCustomer(*customer)
	}
	return *customer, nil
}
