package domain

import "time"

// Batch groups the messages of one submission. ReservedCredits is held on the
// account until the batch settles; ChargedCredits is what settlement debited.
type Batch struct {
	ID              string     `db:"id" json:"id"`
	AccountID       int64      `db:"account_id" json:"accountId"`
	Segments        int        `db:"segments" json:"segments"`
	RecipientCount  int        `db:"recipient_count" json:"recipientCount"`
	ReservedCredits int64      `db:"reserved_credits" json:"reservedCredits"`
	ChargedCredits  *int64     `db:"charged_credits" json:"chargedCredits,omitempty"`
	SettledAt       *time.Time `db:"settled_at" json:"settledAt,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
}

func (b Batch) Settled() bool {
	return b.SettledAt != nil
}

// BatchProgress counts a batch's messages by outcome.
type BatchProgress struct {
	Pending int `db:"pending"`
	Sent    int `db:"sent"`
}

type BatchResult struct {
	BatchID    string   `json:"batchId"`
	MessageIDs []int64  `json:"messageIds"`
	Encoding   string   `json:"encoding"`
	Segments   int      `json:"segments"`
	Cost       int64    `json:"cost"`
	Accepted   int      `json:"accepted"`
	Sent       int      `json:"sent"`
	Failed     int      `json:"failed"`
	Scheduled  bool     `json:"scheduled"`
	Charged    *int64   `json:"charged,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}
