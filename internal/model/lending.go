package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType identifies what happened in a lending history row.
type TransactionType string

// Lending history transaction types.
const (
	// TransactionCheckIn is a lend: the user takes a book out.
	TransactionCheckIn TransactionType = "CheckIn"
	// TransactionCheckOut is a return: the user brings a book back.
	TransactionCheckOut TransactionType = "CheckOut"
	// TransactionPayment is a fine payment.
	TransactionPayment TransactionType = "Payment"
)

// ParseTransactionType accepts the spellings found in circulation exports
// ("Check in", "CheckIn", "check_out", "PAYMENT").
func ParseTransactionType(s string) (TransactionType, error) {
	normalized := strings.ToLower(s)
	normalized = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(normalized)

	switch normalized {
	case "checkin":
		return TransactionCheckIn, nil
	case "checkout":
		return TransactionCheckOut, nil
	case "payment":
		return TransactionPayment, nil
	default:
		return "", fmt.Errorf("unknown transaction type %q", s)
	}
}

// LendingTransaction is one row of the lending history.
type LendingTransaction struct {
	Date       time.Time
	Amount     decimal.Decimal
	CardNumber string
	Type       TransactionType
	HasAmount  bool // only Payment rows carry an amount
}
