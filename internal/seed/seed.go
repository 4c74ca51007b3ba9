package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/smallbiznis/autobill/internal/customer/domain"
	customerrepo "github.com/smallbiznis/autobill/internal/customer/repository"
	invoicedomain "github.com/smallbiznis/autobill/internal/invoice/domain"
	invoicerepo "github.com/smallbiznis/autobill/internal/invoice/repository"
	"github.com/smallbiznis/autobill/pkg/db"
	"gorm.io/gorm"
)

// Options shapes the sample data set.
type Options struct {
	Customers           int
	InvoicesPerCustomer int
	Currencies          []string
	// MinAmount and MaxAmount bound invoice amounts in minor units.
	MinAmount int64
	MaxAmount int64
	Rand      *rand.Rand
	Now       time.Time
}

func DefaultOptions() Options {
	return Options{
		Customers:           100,
		InvoicesPerCustomer: 10,
		Currencies:          []string{"EUR", "USD", "DKK", "SEK", "GBP"},
		MinAmount:           1000,
		MaxAmount:           50000,
	}
}

// EnsureSampleData fills an empty database with customers, each owning one
// PENDING invoice followed by PAID ones. It returns the number of customers
// created, zero when customers already exist.
func EnsureSampleData(ctx context.Context, conn *gorm.DB, node *snowflake.Node, opts Options) (int, error) {
	if conn == nil {
		return 0, errors.New("seed database handle is required")
	}
	if node == nil {
		return 0, errors.New("seed id generator is required")
	}
	if len(opts.Currencies) == 0 || opts.MaxAmount <= opts.MinAmount {
		return 0, errors.New("seed options are invalid")
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var existing int64
	if err := conn.WithContext(ctx).Table("customers").Count(&existing).Error; err != nil {
		return 0, fmt.Errorf("count customers: %w", err)
	}
	if existing > 0 {
		return 0, nil
	}

	customers := customerrepo.Provide()
	invoices := invoicerepo.Provide()

	err := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := 1; i <= opts.Customers; i++ {
			customer := customerdomain.Customer{
				ID:        node.Generate(),
				Name:      fmt.Sprintf("Customer %03d", i),
				Email:     fmt.Sprintf("customer%03d@example.com", i),
				Currency:  opts.Currencies[rng.IntN(len(opts.Currencies))],
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := customers.Insert(ctx, tx, &customer); err != nil {
				return fmt.Errorf("insert customer: %w", err)
			}

			for j := 1; j <= opts.InvoicesPerCustomer; j++ {
				status := invoicedomain.InvoiceStatusPaid
				if j == 1 {
					status = invoicedomain.InvoiceStatusPending
				}
				invoice := invoicedomain.Invoice{
					ID:         node.Generate(),
					CustomerID: customer.ID,
					Amount:     opts.MinAmount + rng.Int64N(opts.MaxAmount-opts.MinAmount),
					Currency:   customer.Currency,
					Status:     status,
					CreatedAt:  now,
					UpdatedAt:  now,
				}
				if err := invoices.Insert(ctx, tx, &invoice); err != nil {
					return fmt.Errorf("insert invoice: %w", err)
				}
			}
		}
		return nil
	})
	if db.IsDuplicateKeyErr(err) {
		// Another replica seeded concurrently.
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return opts.Customers, nil
}
