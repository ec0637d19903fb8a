package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"minemechanics/internal/domain"
	"minemechanics/internal/repository"
	"minemechanics/internal/service"
)

type recordingAudit struct {
	actions []string
}

func (r *recordingAudit) Log(_ context.Context, _ int64, action string, _ map[string]interface{}) {
	r.actions = append(r.actions, action)
}

// stubBalances implements service.BalanceStore over a map.
type stubBalances struct {
	balances map[int64]map[domain.Currency]float64
}

func newStubBalances() *stubBalances {
	return &stubBalances{balances: make(map[int64]map[domain.Currency]float64)}
}

func (s *stubBalances) EnsureUser(_ context.Context, tgID int64, _ string) error {
	if s.balances[tgID] == nil {
		s.balances[tgID] = make(map[domain.Currency]float64)
	}
	return nil
}

func (s *stubBalances) GetByTgID(_ context.Context, tgID int64) (*domain.User, error) {
	b, ok := s.balances[tgID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &domain.User{TgID: tgID, BalanceMinem: b[domain.CurrencyMinem]}, nil
}

func (s *stubBalances) Credit(_ context.Context, tgID int64, cur domain.Currency, amount float64) (float64, error) {
	if s.balances[tgID] == nil {
		s.balances[tgID] = make(map[domain.Currency]float64)
	}
	s.balances[tgID][cur] += amount
	return s.balances[tgID][cur], nil
}

func (s *stubBalances) Debit(_ context.Context, tgID int64, cur domain.Currency, amount float64) (float64, error) {
	b, ok := s.balances[tgID]
	if !ok {
		return 0, repository.ErrUserNotFound
	}
	if b[cur] < amount {
		return 0, repository.ErrInsufficientFunds
	}
	b[cur] -= amount
	return b[cur], nil
}

func (s *stubBalances) Swap(_ context.Context, _ int64, _, _ float64) error { return nil }

func (s *stubBalances) TopUpPacks(_ context.Context, _ int64, _ float64) error { return nil }

func newAdjustRouter(balances *stubBalances, audit *recordingAudit) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/ledger/adjust", NewLedgerHandler(service.NewLedgerService(balances), audit).Adjust)
	return r
}

func postAdjust(r *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/ledger/adjust", bytes.NewBufferString(body))
	r.ServeHTTP(w, req)
	return w
}

func TestAdjust_CreditAndAudit(t *testing.T) {
	balances := newStubBalances()
	audit := &recordingAudit{}
	r := newAdjustRouter(balances, audit)

	w := postAdjust(r, `{"tg_id":42,"currency":"minem","amount":5,"op":"credit","reason":"flagged deposit MM-ghost"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := balances.balances[42][domain.CurrencyMinem]; got != 5 {
		t.Errorf("balance = %v, want 5", got)
	}
	if len(audit.actions) != 1 || audit.actions[0] != domain.AuditActionManualAdjust {
		t.Errorf("audit actions = %v", audit.actions)
	}
}

func TestAdjust_DebitInsufficient(t *testing.T) {
	balances := newStubBalances()
	_, _ = balances.Credit(context.Background(), 42, domain.CurrencyM2, 3)
	audit := &recordingAudit{}
	r := newAdjustRouter(balances, audit)

	w := postAdjust(r, `{"tg_id":42,"currency":"m2","amount":10,"op":"debit"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if got := balances.balances[42][domain.CurrencyM2]; got != 3 {
		t.Errorf("balance mutated by rejected debit: %v", got)
	}
	if len(audit.actions) != 0 {
		t.Errorf("audit written for rejected debit: %v", audit.actions)
	}
}

func TestAdjust_Validation(t *testing.T) {
	r := newAdjustRouter(newStubBalances(), &recordingAudit{})

	cases := []struct {
		name string
		body string
	}{
		{"missing tg_id", `{"currency":"minem","amount":5,"op":"credit"}`},
		{"unknown currency", `{"tg_id":42,"currency":"gold","amount":5,"op":"credit"}`},
		{"unknown op", `{"tg_id":42,"currency":"minem","amount":5,"op":"transfer"}`},
		{"non-positive amount", `{"tg_id":42,"currency":"minem","amount":0,"op":"credit"}`},
		{"malformed json", `not json`},
	}
	for _, tc := range cases {
		if w := postAdjust(r, tc.body); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tc.name, w.Code)
		}
	}
}

func TestAdjust_DebitUnknownUser(t *testing.T) {
	r := newAdjustRouter(newStubBalances(), &recordingAudit{})
	if w := postAdjust(r, `{"tg_id":42,"currency":"minem","amount":5,"op":"debit"}`); w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
