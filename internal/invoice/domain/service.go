package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	FetchAll(ctx context.Context) ([]Invoice, error)
	Fetch(ctx context.Context, id snowflake.ID) (Invoice, error)
	FetchByStatus(ctx context.Context, status InvoiceStatus) ([]Invoice, error)
	UpdateStatus(ctx context.Context, id snowflake.ID, status InvoiceStatus) error
}

var (
	ErrInvalidID     = errors.New("invalid_id")
	ErrInvalidStatus = errors.New("invalid_status")
	ErrNotFound      = errors.New("not_found")
)
