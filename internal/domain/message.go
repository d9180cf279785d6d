package domain

import (
	"time"

	"github.com/onurcolak/sms-dispatch-service/internal/sms"
)

type Message struct {
	ID              int64         `db:"id" json:"id"`
	BatchID         string        `db:"batch_id" json:"batchId"`
	AccountID       int64         `db:"account_id" json:"accountId"`
	Recipient       string        `db:"recipient" json:"recipient"`
	Body            string        `db:"body" json:"body"`
	GatewayID       int64         `db:"gateway_id" json:"gatewayId"`
	SenderID        string        `db:"sender_id" json:"senderId"`
	Encoding        sms.Encoding  `db:"encoding" json:"encoding"`
	Segments        int           `db:"segments" json:"segments"`
	Status          MessageStatus `db:"status" json:"status"`
	Attempts        int           `db:"attempts" json:"attempts"`
	ScheduledFor    *time.Time    `db:"scheduled_for" json:"scheduledFor,omitempty"`
	SentAt          *time.Time    `db:"sent_at" json:"sentAt,omitempty"`
	ErrorMessage    *string       `db:"error_message" json:"errorMessage,omitempty"`
	RemoteMessageID *string       `db:"remote_message_id" json:"remoteMessageId,omitempty"`
	StatusChangedAt time.Time     `db:"status_changed_at" json:"statusChangedAt"`
	CreatedAt       time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updatedAt"`
}

// ExportRow is one line of the message export joined with its gateway name.
type ExportRow struct {
	Body        string        `db:"body"`
	Recipient   string        `db:"recipient"`
	Status      MessageStatus `db:"status"`
	GatewayName string        `db:"gateway_name"`
	CreatedAt   time.Time     `db:"created_at"`
}

// Transition describes a status-guarded update. Attempts, when set, must also
// match so an update from a superseded attempt is ignored.
type Transition struct {
	ID              int64
	From            MessageStatus
	To              MessageStatus
	Attempts        *int
	ErrorMessage    *string
	RemoteMessageID *string
	SentAt          *time.Time
}

type MessageStats struct {
	Scheduled  int64 `db:"scheduled" json:"scheduled"`
	Queued     int64 `db:"queued" json:"queued"`
	Processing int64 `db:"processing" json:"processing"`
	Sent       int64 `db:"sent" json:"sent"`
	Failed     int64 `db:"failed" json:"failed"`
	Cancelled  int64 `db:"cancelled" json:"cancelled"`
}

func (s MessageStats) Total() int64 {
	return s.Scheduled + s.Queued + s.Processing + s.Sent + s.Failed + s.Cancelled
}

type MessageFilter struct {
	AccountID int64
	Status    *MessageStatus
	BatchID   string
}

type SentMessageCache struct {
	RemoteMessageID string    `json:"remoteMessageId"`
	Recipient       string    `json:"recipient"`
	SentAt          time.Time `json:"sentAt"`
}

// SendRequest is what the gateway transport receives for one recipient.
type SendRequest struct {
	AccountID int64
	GatewayID int64
	SenderID  string
	Recipient string
	Body      string
}

type SendReceipt struct {
	RemoteMessageID string
	Status          string
}

// SendResult is the outcome of a single dispatch attempt.
type SendResult struct {
	MessageID int64
	BatchID   string
	Status    MessageStatus
	Skipped   bool
	Error     error
}

func (r SendResult) Success() bool {
	return r.Status == StatusSent
}

// SweepReport summarizes one scheduler pass.
type SweepReport struct {
	Promoted int `json:"promoted"`
	Requeued int `json:"requeued"`
	Expired  int `json:"expired"`
	Sent     int `json:"sent"`
	Failed   int `json:"failed"`
	Settled  int `json:"settled"`
}

// Dispatched counts the messages that reached the gateway in the pass.
func (r SweepReport) Dispatched() int {
	return r.Sent + r.Failed
}
