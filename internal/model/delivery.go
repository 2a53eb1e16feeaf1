package model

import "time"

type DeliveryKind string

const (
	KindReply    DeliveryKind = "reply"
	KindButtons  DeliveryKind = "buttons"
	KindReminder DeliveryKind = "reminder"
	KindFollowUp DeliveryKind = "follow_up"
)

func (k DeliveryKind) String() string { return string(k) }

func (k DeliveryKind) Valid() bool {
	return k == KindReply || k == KindButtons || k == KindReminder || k == KindFollowUp
}

type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

func (s DeliveryStatus) String() string { return string(s) }

// Delivery is the DB entity persisted in deliveries table, one row per
// outbound dispatch attempt outcome.
type Delivery struct {
	ID          string         `db:"id"` // ULID
	Recipient   string         `db:"recipient"`
	Kind        DeliveryKind   `db:"kind"`
	Body        string         `db:"body"`
	Status      DeliveryStatus `db:"status"`
	ProviderSID string         `db:"provider_sid"` // empty when the dispatch failed
	CreatedAt   time.Time      `db:"created_at"`
}
