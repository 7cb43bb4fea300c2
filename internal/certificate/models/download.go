package models

import (
	"fmt"
	"time"

	"etatcivil/internal/blob"
	id "etatcivil/pkg/domain"
)

type DownloadStatus string

const (
	DownloadPending DownloadStatus = "pending"
	DownloadPaid    DownloadStatus = "paid"
	DownloadFailed  DownloadStatus = "failed"
)

// DownloadEntry is one append-only ledger line. Paid always implies Released.
type DownloadEntry struct {
	Reference     string
	CertificateID id.CertificateID
	RequestedBy   id.UserID
	Copies        int
	Amount        int64
	Channel       string
	Status        DownloadStatus
	Released      bool
	FileRef       string
	CreatedAt     time.Time
	SettledAt     *time.Time
}

// Settlement is the single write that closes a pending entry.
type Settlement struct {
	Status  DownloadStatus
	FileRef string
	At      time.Time
}

// Released reports whether the settlement hands a file to the parent.
func (s Settlement) Released() bool { return s.Status == DownloadPaid }

// PaymentReference formats PAY-{act}-{unix millis}.
func PaymentReference(actNumber string, at time.Time) string {
	return fmt.Sprintf("PAY-%s-%d", actNumber, at.UnixMilli())
}

// Totals are derived from paid and released entries only.
type Totals struct {
	Copies int64 `json:"copies"`
	Amount int64 `json:"amount"`
}

func TotalsOf(entries []*DownloadEntry) Totals {
	var t Totals
	for _, e := range entries {
		if e.Status == DownloadPaid && e.Released {
			t.Copies += int64(e.Copies)
			t.Amount += e.Amount
		}
	}
	return t
}

// View is a certificate with its ledger and the totals derived from it.
type View struct {
	Certificate *Certificate
	Downloads   []*DownloadEntry
	Totals      Totals
}

// Release is a settled entry and the document handed out for it.
type Release struct {
	Entry    *DownloadEntry
	Document *blob.Object
}

func (e *DownloadEntry) Clone() *DownloadEntry {
	if e == nil {
		return nil
	}
	cp := *e
	if e.SettledAt != nil {
		t := *e.SettledAt
		cp.SettledAt = &t
	}
	return &cp
}
