package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Account holds a user's balance in the ledger.
type Account struct {
	ID      int64           `json:"account_id"`
	UserID  int64           `json:"user_id"`
	Balance decimal.Decimal `json:"balance"`
}

// User is the directory view of a registered user. Credentials live elsewhere.
type User struct {
	ID       int64  `json:"user_id"`
	Username string `json:"username"`
}

// TransferType distinguishes an immediate Send from a Request awaiting approval.
// The numeric values match the transfer_type table ids.
type TransferType int

const (
	TransferTypeRequest TransferType = 1
	TransferTypeSend    TransferType = 2
)

func (t TransferType) String() string {
	switch t {
	case TransferTypeRequest:
		return "Request"
	case TransferTypeSend:
		return "Send"
	default:
		return fmt.Sprintf("TransferType(%d)", int(t))
	}
}

func (t TransferType) MarshalText() ([]byte, error) {
	if t != TransferTypeRequest && t != TransferTypeSend {
		return nil, fmt.Errorf("unknown transfer type %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *TransferType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Request":
		*t = TransferTypeRequest
	case "Send":
		*t = TransferTypeSend
	default:
		return fmt.Errorf("unknown transfer type %q", b)
	}
	return nil
}

// TransferStatus is Pending until it reaches one of the terminal states.
type TransferStatus int

const (
	TransferStatusPending  TransferStatus = 1
	TransferStatusApproved TransferStatus = 2
	TransferStatusRejected TransferStatus = 3
)

func (s TransferStatus) String() string {
	switch s {
	case TransferStatusPending:
		return "Pending"
	case TransferStatusApproved:
		return "Approved"
	case TransferStatusRejected:
		return "Rejected"
	default:
		return fmt.Sprintf("TransferStatus(%d)", int(s))
	}
}

// Terminal reports whether no further transition is allowed.
func (s TransferStatus) Terminal() bool {
	return s == TransferStatusApproved || s == TransferStatusRejected
}

func (s TransferStatus) MarshalText() ([]byte, error) {
	if s < TransferStatusPending || s > TransferStatusRejected {
		return nil, fmt.Errorf("unknown transfer status %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *TransferStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Pending":
		*s = TransferStatusPending
	case "Approved":
		*s = TransferStatusApproved
	case "Rejected":
		*s = TransferStatusRejected
	default:
		return fmt.Errorf("unknown transfer status %q", b)
	}
	return nil
}

// Transfer is the record of a movement of funds between two accounts.
// Parties and amount never change after creation; only Status moves.
type Transfer struct {
	ID            int64           `json:"transfer_id"`
	Type          TransferType    `json:"transfer_type"`
	Status        TransferStatus  `json:"transfer_status"`
	FromAccountID int64           `json:"account_from"`
	ToAccountID   int64           `json:"account_to"`
	Amount        decimal.Decimal `json:"amount"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Direction is relative to the account whose history is being read.
type Direction string

const (
	DirectionOutgoing Direction = "Outgoing"
	DirectionIncoming Direction = "Incoming"
)

// HistoryEntry is one row of an account's transfer history.
type HistoryEntry struct {
	Transfer     Transfer  `json:"transfer"`
	Counterparty string    `json:"counterparty"`
	Direction    Direction `json:"direction"`
}

// TransferRequest is the payload accepted from the presentation layer.
type TransferRequest struct {
	FromAccountID int64           `json:"account_from"`
	ToAccountID   int64           `json:"account_to"`
	Amount        decimal.Decimal `json:"amount"`
}
