package service

import (
	"context"
	"errors"
	"sync"

	"minemechanics/internal/ccpayment"
	"minemechanics/internal/domain"
	"minemechanics/internal/repository"
)

// fakeAudit records audit entries in memory.
type fakeAudit struct {
	mu      sync.Mutex
	entries []auditEntry
}

type auditEntry struct {
	tgID    int64
	action  string
	details map[string]interface{}
}

func (f *fakeAudit) Log(_ context.Context, tgID int64, action string, details map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, auditEntry{tgID: tgID, action: action, details: details})
}

func (f *fakeAudit) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.action)
	}
	return out
}

// fakeBalances keeps per-user balances keyed by currency.
type fakeBalances struct {
	mu       sync.Mutex
	balances map[int64]map[domain.Currency]float64
	users    map[int64]string
}

func newFakeBalances() *fakeBalances {
	return &fakeBalances{
		balances: make(map[int64]map[domain.Currency]float64),
		users:    make(map[int64]string),
	}
}

func (f *fakeBalances) get(tgID int64, cur domain.Currency) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[tgID][cur]
}

func (f *fakeBalances) set(tgID int64, cur domain.Currency, v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balances[tgID] == nil {
		f.balances[tgID] = make(map[domain.Currency]float64)
	}
	f.balances[tgID][cur] = v
	f.users[tgID] = repository.GenerateUsername(tgID)
}

func (f *fakeBalances) EnsureUser(_ context.Context, tgID int64, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[tgID]; !ok {
		f.users[tgID] = username
		f.balances[tgID] = make(map[domain.Currency]float64)
	}
	return nil
}

func (f *fakeBalances) GetByTgID(_ context.Context, tgID int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.users[tgID]
	if !ok {
		return nil, nil
	}
	b := f.balances[tgID]
	return &domain.User{
		TgID:         tgID,
		Username:     name,
		BalanceMinem: b[domain.CurrencyMinem],
		BalanceM2:    b[domain.CurrencyM2],
		Packs:        b[domain.CurrencyPacks],
	}, nil
}

func (f *fakeBalances) Credit(_ context.Context, tgID int64, cur domain.Currency, amount float64) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balances[tgID] == nil {
		f.balances[tgID] = make(map[domain.Currency]float64)
		f.users[tgID] = repository.GenerateUsername(tgID)
	}
	f.balances[tgID][cur] += amount
	return f.balances[tgID][cur], nil
}

func (f *fakeBalances) Debit(_ context.Context, tgID int64, cur domain.Currency, amount float64) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.balances[tgID]
	if b == nil {
		return 0, repository.ErrUserNotFound
	}
	if b[cur] < amount {
		return 0, repository.ErrInsufficientFunds
	}
	b[cur] -= amount
	return b[cur], nil
}

func (f *fakeBalances) Swap(ctx context.Context, tgID int64, amount, received float64) error {
	if _, err := f.Debit(ctx, tgID, domain.CurrencyM2, amount); err != nil {
		return err
	}
	_, err := f.Credit(ctx, tgID, domain.CurrencyMinem, received)
	return err
}

func (f *fakeBalances) TopUpPacks(ctx context.Context, tgID int64, amount float64) error {
	if _, err := f.Debit(ctx, tgID, domain.CurrencyMinem, amount); err != nil {
		return err
	}
	_, err := f.Credit(ctx, tgID, domain.CurrencyPacks, amount)
	return err
}

// fakeMiners backs MinerStore with a map and pairing against fakeBalances, so
// purchase/sell move funds the way the real repository does in one
// transaction.
type fakeMiners struct {
	mu       sync.Mutex
	nextID   int64
	miners   map[int64]*domain.Miner
	balances *fakeBalances
}

func newFakeMiners(b *fakeBalances) *fakeMiners {
	return &fakeMiners{nextID: 1, miners: make(map[int64]*domain.Miner), balances: b}
}

func (f *fakeMiners) GetByID(_ context.Context, id int64) (*domain.Miner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.miners[id]
	if !ok {
		return nil, repository.ErrMinerNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMiners) GetByOwner(_ context.Context, ownerTgID int64) ([]domain.Miner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Miner
	for _, m := range f.miners {
		if m.OwnerTgID == ownerTgID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMiners) OwnerSummary(ctx context.Context, ownerTgID int64) (float64, float64, error) {
	list, _ := f.GetByOwner(ctx, ownerTgID)
	var value, monthly float64
	for _, m := range list {
		value += m.PriceUSD
		monthly += m.MonthlyRewardM2
	}
	return value, monthly, nil
}

func (f *fakeMiners) Purchase(ctx context.Context, buyerTgID int64, price, monthlyReward float64) (*domain.Miner, error) {
	if _, err := f.balances.Debit(ctx, buyerTgID, domain.CurrencyMinem, price); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m := &domain.Miner{
		ID:              f.nextID,
		OwnerTgID:       buyerTgID,
		PriceUSD:        price,
		MonthlyRewardM2: monthlyReward,
	}
	f.nextID++
	f.miners[m.ID] = m
	cp := *m
	return &cp, nil
}

func (f *fakeMiners) Sell(ctx context.Context, minerID, sellerTgID int64, fraction float64) (float64, error) {
	f.mu.Lock()
	m, ok := f.miners[minerID]
	if !ok || m.OwnerTgID != sellerTgID {
		f.mu.Unlock()
		if !ok {
			return 0, repository.ErrMinerNotFound
		}
		return 0, repository.ErrNotOwner
	}
	payout := m.PriceUSD * fraction
	delete(f.miners, minerID)
	f.mu.Unlock()

	if _, err := f.balances.Credit(ctx, sellerTgID, domain.CurrencyMinem, payout); err != nil {
		return 0, err
	}
	return payout, nil
}

func (f *fakeMiners) Gift(_ context.Context, minerID, fromTgID, toTgID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.miners[minerID]
	if !ok {
		return repository.ErrMinerNotFound
	}
	if m.OwnerTgID != fromTgID {
		return repository.ErrNotOwner
	}
	m.OwnerTgID = toTgID
	return nil
}

// fakeSettings returns a fixed value per key.
type fakeSettings struct {
	values map[string]float64
}

func (f *fakeSettings) GetFloat(_ context.Context, key string, def float64) (float64, error) {
	if v, ok := f.values[key]; ok {
		return v, nil
	}
	return def, nil
}

// fakePayments backs PaymentStore with a map. ApplyPaid mirrors the
// repository contract: only a pending row transitions and credits; a row
// that is already terminal (paid or failed) is a no-op with nothing
// credited.
type fakePayments struct {
	mu       sync.Mutex
	payments map[string]*domain.PaymentRequest
	credits  []paymentCredit
}

type paymentCredit struct {
	tgID   int64
	amount float64
}

func newFakePayments() *fakePayments {
	return &fakePayments{payments: make(map[string]*domain.PaymentRequest)}
}

func (f *fakePayments) Create(_ context.Context, p *domain.PaymentRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.payments[p.ReferenceID]; ok {
		return errors.New("duplicate reference")
	}
	cp := *p
	f.payments[p.ReferenceID] = &cp
	return nil
}

func (f *fakePayments) GetByReference(_ context.Context, ref string) (*domain.PaymentRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[ref]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakePayments) ApplyPaid(_ context.Context, ref, trackID string, tgID int64, amount float64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[ref]
	if !ok || p.Status != domain.PaymentStatusPending {
		return false, nil
	}
	p.Status = domain.PaymentStatusPaid
	p.TrackID = trackID
	f.credits = append(f.credits, paymentCredit{tgID: tgID, amount: amount})
	return true, nil
}

func (f *fakePayments) MarkFailed(_ context.Context, ref, trackID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.payments[ref]; ok && p.Status == domain.PaymentStatusPending {
		p.Status = domain.PaymentStatusFailed
		p.TrackID = trackID
	}
	return nil
}

// fakeProvider is an invoiceCreator that can be told to fail.
type fakeProvider struct {
	fail     bool
	requests []*ccpayment.InvoiceRequest
}

func (f *fakeProvider) CreateInvoice(_ context.Context, req *ccpayment.InvoiceRequest) (*ccpayment.Invoice, error) {
	f.requests = append(f.requests, req)
	if f.fail {
		return nil, errors.New("provider unavailable")
	}
	return &ccpayment.Invoice{PaymentURL: "https://pay.example/" + req.ReferenceID, TrackID: "trk-1"}, nil
}
