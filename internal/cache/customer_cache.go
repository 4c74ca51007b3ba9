package cache

import (
	"time"

	"github.com/bwmarrin/snowflake"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	customerdomain "github.com/smallbiznis/autobill/internal/customer/domain"
)

const (
	defaultCustomerTTL     = 5 * time.Minute
	defaultCustomerEntries = 10000
)

// CustomerCache stores customer lookups made on the charge hot path
// (provider validation and notices).
type CustomerCache interface {
	GetCustomer(id snowflake.ID) (customerdomain.Customer, bool)
	SetCustomer(customer customerdomain.Customer)
}

type customerCache struct {
	customers *lru.LRU[snowflake.ID, customerdomain.Customer]
}

func NewCustomerCache() CustomerCache {
	return newCustomerCache(defaultCustomerEntries, defaultCustomerTTL)
}

func newCustomerCache(maxEntries int, ttl time.Duration) *customerCache {
	return &customerCache{
		customers: lru.NewLRU[snowflake.ID, customerdomain.Customer](maxEntries, nil, ttl),
	}
}

func (c *customerCache) GetCustomer(id snowflake.ID) (customerdomain.Customer, bool) {
	return c.customers.Get(id)
}

func (c *customerCache) SetCustomer(customer customerdomain.Customer) {
	if customer.ID == 0 {
		return
	}
	c.customers.Add(customer.ID, customer)
}
