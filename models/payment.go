package models

import "time"

type PaymentMethod string

const (
	MethodMobileMoney    PaymentMethod = "mobile_money"
	MethodCard           PaymentMethod = "card"
	MethodCashOnDelivery PaymentMethod = "cash_on_delivery"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodMobileMoney, MethodCard, MethodCashOnDelivery:
		return true
	}
	return false
}

// MobileMoneyProviders are the operators accepted for mobile_money payments.
var MobileMoneyProviders = map[string]bool{
	"mtn":        true,
	"vodafone":   true,
	"airteltigo": true,
}

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
	PaymentCancelled  PaymentStatus = "cancelled"
)

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentCompleted || s == PaymentFailed || s == PaymentCancelled
}

// Payment settles exactly one order. Amount is copied from the order at creation.
type Payment struct {
	ID            string        `json:"id" bson:"_id"`
	OrderID       string        `json:"orderId" bson:"orderId"`
	UserID        string        `json:"userId" bson:"userId"`
	Amount        float64       `json:"amount" bson:"amount"`
	Method        PaymentMethod `json:"method" bson:"method"`
	Provider      string        `json:"provider,omitempty" bson:"provider,omitempty"`
	PhoneNumber   string        `json:"phoneNumber,omitempty" bson:"phoneNumber,omitempty"`
	TransactionID string        `json:"transactionId,omitempty" bson:"transactionId,omitempty"`
	Status        PaymentStatus `json:"status" bson:"status"`
	ProcessingAt  *time.Time    `json:"processingAt,omitempty" bson:"processingAt,omitempty"`
	CreatedAt     time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt" bson:"updatedAt"`
}

// PaymentFilter selects payments for listing. Empty fields match everything.
type PaymentFilter struct {
	OrderID string
	UserID  string
}

// PaymentTransition describes a conditional status write.
type PaymentTransition struct {
	From          PaymentStatus
	To            PaymentStatus
	TransactionID string
	At            time.Time
}

// PaymentView is a payment with its order materialised.
type PaymentView struct {
	Payment
	Order *Order `json:"order"`
}
