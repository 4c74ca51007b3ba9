package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/autobill/internal/invoice/domain"
	"github.com/smallbiznis/autobill/internal/invoice/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (domain.Service, domain.Repository, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE IF NOT EXISTS invoices (
		id BIGINT PRIMARY KEY,
		customer_id BIGINT NOT NULL,
		amount BIGINT NOT NULL,
		currency TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`).Error)

	repo := repository.Provide()
	svc := New(Params{DB: db, Log: zap.NewNop(), Repo: repo})
	return svc, repo, db
}

func seedInvoice(t *testing.T, repo domain.Repository, db *gorm.DB, id int64, status domain.InvoiceStatus) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, repo.Insert(context.Background(), db, &domain.Invoice{
		ID:         snowflake.ID(id),
		CustomerID: snowflake.ID(id * 10),
		Amount:     1999,
		Currency:   "EUR",
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}))
}

func TestFetchByStatusReturnsOnlyMatching(t *testing.T) {
	svc, repo, db := setupService(t)
	seedInvoice(t, repo, db, 1, domain.InvoiceStatusPending)
	seedInvoice(t, repo, db, 2, domain.InvoiceStatusPaid)
	seedInvoice(t, repo, db, 3, domain.InvoiceStatusPending)

	invoices, err := svc.FetchByStatus(context.Background(), domain.InvoiceStatusPending)
	require.NoError(t, err)
	require.Len(t, invoices, 2)
	assert.Equal(t, snowflake.ID(1), invoices[0].ID)
	assert.Equal(t, snowflake.ID(3), invoices[1].ID)
	assert.Equal(t, int64(1999), invoices[0].Money().Amount)

	all, err := svc.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestFetchMissingInvoiceReturnsNotFound(t *testing.T) {
	svc, _, _ := setupService(t)

	_, err := svc.Fetch(context.Background(), snowflake.ID(42))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Fetch(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestUpdateStatus(t *testing.T) {
	svc, repo, db := setupService(t)
	seedInvoice(t, repo, db, 7, domain.InvoiceStatusPending)
	ctx := context.Background()

	require.NoError(t, svc.UpdateStatus(ctx, snowflake.ID(7), domain.InvoiceStatusPaid))
	invoice, err := svc.Fetch(ctx, snowflake.ID(7))
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPaid, invoice.Status)

	assert.ErrorIs(t, svc.UpdateStatus(ctx, snowflake.ID(8), domain.InvoiceStatusPaid), domain.ErrNotFound)
	assert.ErrorIs(t, svc.UpdateStatus(ctx, snowflake.ID(7), domain.InvoiceStatus("LOST")), domain.ErrInvalidStatus)
}

func TestFetchByStatusRejectsUnknownStatus(t *testing.T) {
	svc, _, _ := setupService(t)
	_, err := svc.FetchByStatus(context.Background(), domain.InvoiceStatus("LOST"))
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}
