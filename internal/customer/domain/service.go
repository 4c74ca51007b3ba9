package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	FetchAll(ctx context.Context) ([]Customer, error)
	Fetch(ctx context.Context, id snowflake.ID) (Customer, error)
}

var (
	ErrInvalidID = errors.New("invalid_id")
	ErrNotFound  = errors.New("not_found")
)
