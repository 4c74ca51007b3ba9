package server

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/autobill/internal/invoice/domain"
)

const dateOnlyLayout = "2006-01-02"

func parseSnowflakeID(value string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return 0, invoicedomain.ErrInvalidID
	}
	return parsed, nil
}

func parseStatusParam(value string) (invoicedomain.InvoiceStatus, error) {
	return invoicedomain.ParseStatus(value)
}

// parseOptionalDate reads a YYYY-MM-DD date as UTC midnight.
func parseOptionalDate(value string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation(dateOnlyLayout, trimmed, time.UTC)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
