// Package schedule decides which invoice statuses a billing run processes
// on a given calendar date.
package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/autobill/internal/config"
	invoicedomain "github.com/smallbiznis/autobill/internal/invoice/domain"
)

// Schedule is immutable once built and safe for concurrent use.
type Schedule struct {
	weekdays  map[time.Weekday][]invoicedomain.InvoiceStatus
	permanent []invoicedomain.InvoiceStatus
}

var weekdayByName = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func New(cfg config.ScheduleConfig) (*Schedule, error) {
	s := &Schedule{weekdays: make(map[time.Weekday][]invoicedomain.InvoiceStatus, len(cfg.Weekdays))}

	for name, raw := range cfg.Weekdays {
		day, ok := weekdayByName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("schedule: unknown weekday %q", name)
		}
		statuses, err := parseStatuses(raw)
		if err != nil {
			return nil, fmt.Errorf("schedule: %s: %w", name, err)
		}
		for _, status := range statuses {
			if status.Terminal() {
				return nil, fmt.Errorf("schedule: %s: terminal status %s cannot be retried", name, status)
			}
		}
		s.weekdays[day] = statuses
	}

	permanent, err := parseStatuses(cfg.PermanentFailStatuses)
	if err != nil {
		return nil, fmt.Errorf("schedule: permanent fail statuses: %w", err)
	}
	for _, status := range permanent {
		if !status.Failed() {
			return nil, fmt.Errorf("schedule: %s is not a failure status", status)
		}
	}
	s.permanent = permanent

	return s, nil
}

// Default returns the built-in weekday table.
func Default() *Schedule {
	s, err := New(config.DefaultBillingConfig().Schedule)
	if err != nil {
		panic(err)
	}
	return s
}

// parseStatuses keeps the first occurrence of each status and preserves order.
func parseStatuses(raw []string) ([]invoicedomain.InvoiceStatus, error) {
	out := make([]invoicedomain.InvoiceStatus, 0, len(raw))
	seen := make(map[invoicedomain.InvoiceStatus]struct{}, len(raw))
	for _, value := range raw {
		status, err := invoicedomain.ParseStatus(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", err, value)
		}
		if _, dup := seen[status]; dup {
			continue
		}
		seen[status] = struct{}{}
		out = append(out, status)
	}
	return out, nil
}

// StatusesToRetry returns the ordered statuses configured for day, or an
// empty slice when the day is not configured.
func (s *Schedule) StatusesToRetry(day time.Weekday) []invoicedomain.InvoiceStatus {
	statuses := s.weekdays[day]
	out := make([]invoicedomain.InvoiceStatus, len(statuses))
	copy(out, statuses)
	return out
}

func (s *Schedule) ShouldBillPendingToday(date time.Time) bool {
	return date.Day() == 1
}

func (s *Schedule) ShouldSweepPermanentFailuresToday(date time.Time) bool {
	return date.AddDate(0, 0, 1).Day() == 1
}

func (s *Schedule) PermanentFailableStatuses() []invoicedomain.InvoiceStatus {
	out := make([]invoicedomain.InvoiceStatus, len(s.permanent))
	copy(out, s.permanent)
	return out
}

// IsPermanentFailable reports whether status takes part in the month-end sweep.
func (s *Schedule) IsPermanentFailable(status invoicedomain.InvoiceStatus) bool {
	for _, candidate := range s.permanent {
		if candidate == status {
			return true
		}
	}
	return false
}
