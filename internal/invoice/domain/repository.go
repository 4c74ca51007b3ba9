package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB) ([]Invoice, error)
	ListByStatus(ctx context.Context, db *gorm.DB, status InvoiceStatus) ([]Invoice, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status InvoiceStatus) (bool, error)
}
