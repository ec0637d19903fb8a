package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"minemechanics/internal/ccpayment"
	"minemechanics/internal/domain"
)

func pendingPayment(payments *fakePayments, ref string, tgID int64, amount float64) {
	_ = payments.Create(context.Background(), &domain.PaymentRequest{
		TgID:        tgID,
		AmountUSD:   amount,
		ReferenceID: ref,
		Status:      domain.PaymentStatusPending,
	})
}

func TestProcess_PaidCallbackCreditsOnce(t *testing.T) {
	payments := newFakePayments()
	audit := &fakeAudit{}
	var notified []string
	svc := NewReconcileService(payments, audit, func(s string) { notified = append(notified, s) })

	pendingPayment(payments, "MM-1", 42, 5)

	body := []byte(`{"referenceId":"MM-1","status":"paid","amount":5,"txHash":"0xabc","metadata":{"tg_id":42}}`)
	res, err := svc.Process(context.Background(), body)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !res.Credited || res.Flagged {
		t.Fatalf("result = %+v", res)
	}
	if res.TgID != 42 || res.Amount != 5 {
		t.Fatalf("credited wrong target: %+v", res)
	}
	if len(payments.credits) != 1 {
		t.Fatalf("credits = %d, want 1", len(payments.credits))
	}
	if len(notified) != 1 {
		t.Errorf("admin notifications = %d, want 1", len(notified))
	}

	p, _ := payments.GetByReference(context.Background(), "MM-1")
	if p.Status != domain.PaymentStatusPaid {
		t.Errorf("status = %s, want paid", p.Status)
	}
}

func TestProcess_RedeliveredCallbacksAreNoOps(t *testing.T) {
	payments := newFakePayments()
	svc := NewReconcileService(payments, &fakeAudit{}, nil)

	pendingPayment(payments, "MM-1", 42, 5)
	body := []byte(`{"referenceId":"MM-1","status":"paid","amount":5}`)

	for i := 0; i < 5; i++ {
		res, err := svc.Process(context.Background(), body)
		if err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
		if want := i == 0; res.Credited != want {
			t.Errorf("delivery %d: credited = %v, want %v", i, res.Credited, want)
		}
	}
	if len(payments.credits) != 1 {
		t.Fatalf("credits after 5 deliveries = %d, want exactly 1", len(payments.credits))
	}
}

func TestProcess_StatusSynonyms(t *testing.T) {
	for _, status := range []string{"paid", "success", "completed", "confirmed"} {
		payments := newFakePayments()
		svc := NewReconcileService(payments, &fakeAudit{}, nil)
		pendingPayment(payments, "MM-1", 42, 5)

		body := []byte(fmt.Sprintf(`{"referenceId":"MM-1","status":"%s"}`, status))
		res, err := svc.Process(context.Background(), body)
		if err != nil {
			t.Fatalf("%s: %v", status, err)
		}
		if !res.Credited {
			t.Errorf("status %q did not credit", status)
		}
	}
}

func TestProcess_UnknownReferenceFlagged(t *testing.T) {
	payments := newFakePayments()
	audit := &fakeAudit{}
	svc := NewReconcileService(payments, audit, nil)

	res, err := svc.Process(context.Background(), []byte(`{"referenceId":"MM-ghost","status":"paid","amount":9}`))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !res.Flagged || res.Credited {
		t.Fatalf("result = %+v, want flagged and not credited", res)
	}
	if len(payments.credits) != 0 {
		t.Fatal("unknown reference credited a balance")
	}
	if got := audit.actions(); len(got) != 1 || got[0] != domain.AuditActionManualReview {
		t.Errorf("audit actions = %v", got)
	}
}

func TestProcess_MissingReferenceRejected(t *testing.T) {
	svc := NewReconcileService(newFakePayments(), &fakeAudit{}, nil)
	if _, err := svc.Process(context.Background(), []byte(`{"status":"paid"}`)); !errors.Is(err, ccpayment.ErrMissingReference) {
		t.Fatalf("err = %v, want ErrMissingReference", err)
	}
}

func TestProcess_FailedStatusTerminatesWithoutCredit(t *testing.T) {
	payments := newFakePayments()
	svc := NewReconcileService(payments, &fakeAudit{}, nil)
	pendingPayment(payments, "MM-1", 42, 5)

	res, err := svc.Process(context.Background(), []byte(`{"referenceId":"MM-1","status":"failed","txid":"t-9"}`))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Credited {
		t.Fatal("failed callback credited a balance")
	}
	p, _ := payments.GetByReference(context.Background(), "MM-1")
	if p.Status != domain.PaymentStatusFailed {
		t.Errorf("status = %s, want failed", p.Status)
	}
	if len(payments.credits) != 0 {
		t.Fatal("credit recorded for failed callback")
	}
}

func TestProcess_PaidAfterFailedFlagsWithoutCredit(t *testing.T) {
	payments := newFakePayments()
	audit := &fakeAudit{}
	svc := NewReconcileService(payments, audit, nil)
	pendingPayment(payments, "MM-1", 42, 5)

	if _, err := svc.Process(context.Background(), []byte(`{"referenceId":"MM-1","status":"failed"}`)); err != nil {
		t.Fatalf("failed delivery: %v", err)
	}

	// out-of-order paid delivery after the row went terminal: funds are
	// flagged for manual follow-up, nothing is credited
	res, err := svc.Process(context.Background(), []byte(`{"referenceId":"MM-1","status":"paid","amount":5}`))
	if err != nil {
		t.Fatalf("paid delivery: %v", err)
	}
	if res.Credited {
		t.Error("paid callback credited after terminal failure")
	}
	if !res.Flagged {
		t.Error("paid-after-failed not flagged for manual review")
	}
	if len(payments.credits) != 0 {
		t.Fatalf("credits = %d, want 0", len(payments.credits))
	}

	p, _ := payments.GetByReference(context.Background(), "MM-1")
	if p.Status != domain.PaymentStatusFailed {
		t.Errorf("status = %s, want failed", p.Status)
	}

	got := audit.actions()
	if len(got) == 0 || got[len(got)-1] != domain.AuditActionManualReview {
		t.Errorf("audit actions = %v, want manual_review last", got)
	}
}

func TestProcess_PendingStatusKeepsRowPending(t *testing.T) {
	payments := newFakePayments()
	svc := NewReconcileService(payments, &fakeAudit{}, nil)
	pendingPayment(payments, "MM-1", 42, 5)

	res, err := svc.Process(context.Background(), []byte(`{"referenceId":"MM-1","status":"processing"}`))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Credited || res.Flagged {
		t.Fatalf("result = %+v", res)
	}
	p, _ := payments.GetByReference(context.Background(), "MM-1")
	if p.Status != domain.PaymentStatusPending {
		t.Errorf("status = %s, want pending", p.Status)
	}
}

func TestProcess_FallsBackToStoredRecord(t *testing.T) {
	payments := newFakePayments()
	svc := NewReconcileService(payments, &fakeAudit{}, nil)
	pendingPayment(payments, "MM-1", 42, 7.5)

	// callback carries neither metadata nor amount; the stored pending
	// record supplies both
	res, err := svc.Process(context.Background(), []byte(`{"referenceId":"MM-1","status":"paid"}`))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !res.Credited || res.TgID != 42 || res.Amount != 7.5 {
		t.Fatalf("result = %+v", res)
	}
}

func TestProcess_MetadataOverridesStoredRecord(t *testing.T) {
	payments := newFakePayments()
	svc := NewReconcileService(payments, &fakeAudit{}, nil)
	pendingPayment(payments, "MM-1", 42, 7.5)

	res, err := svc.Process(context.Background(), []byte(`{"referenceId":"MM-1","status":"paid","amount":3,"metadata":{"tg_id":99}}`))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.TgID != 99 || res.Amount != 3 {
		t.Fatalf("result = %+v, want metadata values preferred", res)
	}
}
