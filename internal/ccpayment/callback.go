package ccpayment

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

var ErrMissingReference = errors.New("callback missing reference id")

// paidStatuses are the provider status values that mean funds were received.
var paidStatuses = map[string]bool{
	"paid":      true,
	"success":   true,
	"completed": true,
	"confirmed": true,
}

// Callback is a provider callback normalized into one canonical shape. The
// provider varies key spelling between versions and may nest everything under
// a "data" envelope; ParseCallback tolerates all observed variants.
type Callback struct {
	ReferenceID string
	Status      string
	Amount      float64
	TrackID     string
	TgID        int64
}

// Paid reports whether the normalized status belongs to the paid-equivalent
// set.
func (c *Callback) Paid() bool {
	return paidStatuses[c.Status]
}

// looseNumber decodes a JSON number that some provider versions quote as a
// string.
type looseNumber float64

func (n *looseNumber) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*n = looseNumber(v)
	return nil
}

type rawMetadata struct {
	TgID looseNumber `json:"tg_id"`
}

type rawCallback struct {
	ReferenceID      string       `json:"referenceId"`
	ReferenceIDSnake string       `json:"reference_id"`
	Status           string       `json:"status"`
	Amount           looseNumber  `json:"amount"`
	TxHash           string       `json:"txHash"`
	TxID             string       `json:"txid"`
	Metadata         rawMetadata  `json:"metadata"`
	Data             *rawCallback `json:"data"`
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// ParseCallback normalizes a raw callback payload. The reference id is the
// only mandatory field: without it the payload cannot be correlated with any
// invoice and is rejected before anything mutates.
func ParseCallback(body []byte) (*Callback, error) {
	var raw rawCallback
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	nested := raw.Data
	if nested == nil {
		nested = &rawCallback{}
	}

	cb := &Callback{
		ReferenceID: firstNonEmpty(raw.ReferenceID, raw.ReferenceIDSnake, nested.ReferenceID, nested.ReferenceIDSnake),
		Status:      strings.ToLower(firstNonEmpty(raw.Status, nested.Status)),
		TrackID:     firstNonEmpty(raw.TxHash, nested.TxHash, raw.TxID, nested.TxID),
	}

	cb.Amount = float64(raw.Amount)
	if cb.Amount == 0 {
		cb.Amount = float64(nested.Amount)
	}

	cb.TgID = int64(raw.Metadata.TgID)
	if cb.TgID == 0 {
		cb.TgID = int64(nested.Metadata.TgID)
	}

	if cb.ReferenceID == "" {
		return nil, ErrMissingReference
	}
	return cb, nil
}
