package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/smallbiznis/autobill/internal/billing/domain"
	"github.com/smallbiznis/autobill/internal/billing/retry"
	"github.com/smallbiznis/autobill/internal/billing/schedule"
	"github.com/smallbiznis/autobill/internal/clock"
	"github.com/smallbiznis/autobill/internal/config"
	invoicedomain "github.com/smallbiznis/autobill/internal/invoice/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type statusUpdate struct {
	ID     snowflake.ID
	Status invoicedomain.InvoiceStatus
}

type fakeInvoices struct {
	mu        sync.Mutex
	invoices  map[snowflake.ID]invoicedomain.Invoice
	updates   []statusUpdate
	fetchErr  error
	updateErr map[snowflake.ID]error
}

func newFakeInvoices(invoices ...invoicedomain.Invoice) *fakeInvoices {
	f := &fakeInvoices{invoices: map[snowflake.ID]invoicedomain.Invoice{}, updateErr: map[snowflake.ID]error{}}
	for _, inv := range invoices {
		f.invoices[inv.ID] = inv
	}
	return f
}

func (f *fakeInvoices) FetchAll(context.Context) ([]invoicedomain.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(func(invoicedomain.Invoice) bool { return true }), nil
}

func (f *fakeInvoices) Fetch(_ context.Context, id snowflake.ID) (invoicedomain.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok {
		return invoicedomain.Invoice{}, invoicedomain.ErrNotFound
	}
	return inv, nil
}

func (f *fakeInvoices) FetchByStatus(_ context.Context, status invoicedomain.InvoiceStatus) ([]invoicedomain.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.sorted(func(inv invoicedomain.Invoice) bool { return inv.Status == status }), nil
}

func (f *fakeInvoices) UpdateStatus(_ context.Context, id snowflake.ID, status invoicedomain.InvoiceStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.updateErr[id]; err != nil {
		return err
	}
	inv, ok := f.invoices[id]
	if !ok {
		return invoicedomain.ErrNotFound
	}
	inv.Status = status
	f.invoices[id] = inv
	f.updates = append(f.updates, statusUpdate{ID: id, Status: status})
	return nil
}

func (f *fakeInvoices) sorted(keep func(invoicedomain.Invoice) bool) []invoicedomain.Invoice {
	out := make([]invoicedomain.Invoice, 0, len(f.invoices))
	for _, inv := range f.invoices {
		if keep(inv) {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeInvoices) Updates() []statusUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]statusUpdate, len(f.updates))
	copy(out, f.updates)
	return out
}

func (f *fakeInvoices) Status(id snowflake.ID) invoicedomain.InvoiceStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invoices[id].Status
}

type fakeProvider struct {
	mu     sync.Mutex
	calls  map[snowflake.ID]int
	charge func(ctx context.Context, inv invoicedomain.Invoice, call int) (bool, error)
}

func newFakeProvider(charge func(ctx context.Context, inv invoicedomain.Invoice, call int) (bool, error)) *fakeProvider {
	return &fakeProvider{calls: map[snowflake.ID]int{}, charge: charge}
}

func (p *fakeProvider) Charge(ctx context.Context, inv invoicedomain.Invoice) (bool, error) {
	p.mu.Lock()
	p.calls[inv.ID]++
	call := p.calls[inv.ID]
	p.mu.Unlock()
	return p.charge(ctx, inv, call)
}

func (p *fakeProvider) Calls(id snowflake.ID) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[id]
}

func (p *fakeProvider) TotalCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, n := range p.calls {
		total += n
	}
	return total
}

type internalAlert struct {
	ID     snowflake.ID
	Reason string
}

type fakeNotifier struct {
	mu        sync.Mutex
	successes []snowflake.ID
	failures  []snowflake.ID
	alerts    []internalAlert
	permanent []snowflake.ID
}

func (n *fakeNotifier) NotifySuccess(_ context.Context, inv invoicedomain.Invoice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, inv.ID)
}

func (n *fakeNotifier) NotifyFailure(_ context.Context, inv invoicedomain.Invoice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, inv.ID)
}

func (n *fakeNotifier) NotifyChargeFailure(_ context.Context, inv invoicedomain.Invoice, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, internalAlert{ID: inv.ID, Reason: reason})
}

func (n *fakeNotifier) NotifyPermanentFail(_ context.Context, inv invoicedomain.Invoice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.permanent = append(n.permanent, inv.ID)
}

type notifierCounts struct {
	Successes, Failures, Alerts, Permanent int
}

func (n *fakeNotifier) Counts() notifierCounts {
	n.mu.Lock()
	defer n.mu.Unlock()
	return notifierCounts{len(n.successes), len(n.failures), len(n.alerts), len(n.permanent)}
}

type fakeLocker struct {
	mu        sync.Mutex
	held      map[string]string
	keys      []string
	released  []string
	refreshes int
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]string{}}
}

func (l *fakeLocker) TryLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
	if _, ok := l.held[key]; ok {
		return "", false, nil
	}
	l.held[key] = "token-" + key
	return l.held[key], true, nil
}

func (l *fakeLocker) Refresh(_ context.Context, key, token string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] != token {
		return false, nil
	}
	l.refreshes++
	return true, nil
}

func (l *fakeLocker) Refreshes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.refreshes
}

func (l *fakeLocker) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
		l.released = append(l.released, key)
	}
	return nil
}

type harness struct {
	svc      *Service
	invoices *fakeInvoices
	provider *fakeProvider
	notifier *fakeNotifier
	clock    *clock.FakeClock
}

type harnessOption func(*Params)

func withConcurrency(n int) harnessOption {
	return func(p *Params) { p.Cfg.BillingConcurrency = n }
}

func withLocker(l billingdomain.RunLocker) harnessOption {
	return func(p *Params) { p.Locker = l }
}

func withLockTTL(ttl time.Duration) harnessOption {
	return func(p *Params) { p.Cfg.RunLockTTL = ttl }
}

func withSleeper(s clock.Sleeper) harnessOption {
	return func(p *Params) { p.Sleeper = s }
}

func newHarness(t *testing.T, invoices *fakeInvoices, provider *fakeProvider, opts ...harnessOption) *harness {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fc := clock.NewFakeClock(time.Date(2024, time.March, 8, 0, 5, 0, 0, time.UTC))
	notifier := &fakeNotifier{}
	p := Params{
		Cfg:       config.Config{RunLockTTL: time.Hour},
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fc,
		Sleeper:   fc,
		Policy:    retry.DefaultPolicy(),
		Schedule:  schedule.Default(),
		Invoices:  invoices,
		Provider:  provider,
		Customers: notifier,
		Internal:  notifier,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return &harness{
		svc:      newService(p),
		invoices: invoices,
		provider: provider,
		notifier: notifier,
		clock:    fc,
	}
}

func invoice(id int64, status invoicedomain.InvoiceStatus) invoicedomain.Invoice {
	return invoicedomain.Invoice{
		ID:         snowflake.ID(id),
		CustomerID: snowflake.ID(id * 10),
		Amount:     1000 + id,
		Currency:   "EUR",
		Status:     status,
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 5, 0, 0, time.UTC)
}

func accept(context.Context, invoicedomain.Invoice, int) (bool, error) { return true, nil }
