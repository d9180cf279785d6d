package domain

import "time"

// AccountBalance is the stored credit state of one account. Credits is what
// the account owns; Reserved is the part held by unsettled batches.
type AccountBalance struct {
	AccountID int64     `db:"account_id" json:"accountId"`
	Credits   int64     `db:"credits" json:"credits"`
	Reserved  int64     `db:"reserved" json:"reserved"`
	Version   int64     `db:"version" json:"version"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

func (b AccountBalance) Available() int64 {
	return b.Credits - b.Reserved
}

func (b AccountBalance) IsSufficient(amount int64) bool {
	return b.Available() >= amount
}

type LedgerEntryKind string

const (
	LedgerCredit  LedgerEntryKind = "credit"
	LedgerReserve LedgerEntryKind = "reserve"
	LedgerRelease LedgerEntryKind = "release"
	LedgerDebit   LedgerEntryKind = "debit"
)

type LedgerEntry struct {
	ID            int64           `db:"id" json:"id"`
	AccountID     int64           `db:"account_id" json:"accountId"`
	CorrelationID string          `db:"correlation_id" json:"correlationId"`
	Kind          LedgerEntryKind `db:"kind" json:"kind"`
	Amount        int64           `db:"amount" json:"amount"`
	CreditsAfter  int64           `db:"credits_after" json:"creditsAfter"`
	ReservedAfter int64           `db:"reserved_after" json:"reservedAfter"`
	Reason        string          `db:"reason" json:"reason"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
}

type Gateway struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	BaseURL   string    `db:"base_url" json:"baseUrl"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
