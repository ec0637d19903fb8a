package ccpayment

import "testing"

func TestParseCallback_FieldVariants(t *testing.T) {
	cases := []struct {
		name string
		body string
		want Callback
	}{
		{
			name: "camel case flat",
			body: `{"referenceId":"MM-1","status":"paid","amount":5,"txHash":"0xabc","metadata":{"tg_id":99}}`,
			want: Callback{ReferenceID: "MM-1", Status: "paid", Amount: 5, TrackID: "0xabc", TgID: 99},
		},
		{
			name: "snake case flat",
			body: `{"reference_id":"MM-2","status":"Success","amount":"2.5","txid":"t-1"}`,
			want: Callback{ReferenceID: "MM-2", Status: "success", Amount: 2.5, TrackID: "t-1"},
		},
		{
			name: "nested data envelope",
			body: `{"data":{"referenceId":"MM-3","status":"COMPLETED","amount":7,"txHash":"h-3","metadata":{"tg_id":"77"}}}`,
			want: Callback{ReferenceID: "MM-3", Status: "completed", Amount: 7, TrackID: "h-3", TgID: 77},
		},
		{
			name: "top level wins over nested",
			body: `{"referenceId":"MM-4","status":"paid","data":{"referenceId":"MM-other","status":"failed"}}`,
			want: Callback{ReferenceID: "MM-4", Status: "paid"},
		},
	}

	for _, tc := range cases {
		got, err := ParseCallback([]byte(tc.body))
		if err != nil {
			t.Errorf("%s: ParseCallback: %v", tc.name, err)
			continue
		}
		if *got != tc.want {
			t.Errorf("%s: got %+v, want %+v", tc.name, *got, tc.want)
		}
	}
}

func TestParseCallback_MissingReference(t *testing.T) {
	for _, body := range []string{
		`{"status":"paid","amount":5}`,
		`{"data":{"status":"paid"}}`,
		`{}`,
	} {
		if _, err := ParseCallback([]byte(body)); err != ErrMissingReference {
			t.Errorf("body %s: err = %v, want ErrMissingReference", body, err)
		}
	}
}

func TestParseCallback_InvalidJSON(t *testing.T) {
	if _, err := ParseCallback([]byte("not json")); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}

func TestCallback_Paid(t *testing.T) {
	paid := []string{"paid", "success", "completed", "confirmed"}
	for _, s := range paid {
		cb := &Callback{Status: s}
		if !cb.Paid() {
			t.Errorf("status %q should be paid", s)
		}
	}
	for _, s := range []string{"pending", "failed", "expired", ""} {
		cb := &Callback{Status: s}
		if cb.Paid() {
			t.Errorf("status %q should not be paid", s)
		}
	}
}
