package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PayoutStatus статус заявки на вывод средств
type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "pending"
	PayoutApproved  PayoutStatus = "approved"
	PayoutRejected  PayoutStatus = "rejected"
	PayoutCompleted PayoutStatus = "completed"
)

var payoutTransitions = map[PayoutStatus]map[PayoutStatus]bool{
	PayoutPending:  {PayoutApproved: true, PayoutRejected: true},
	PayoutApproved: {PayoutCompleted: true, PayoutRejected: true},
}

// CanTransition сообщает, допустим ли переход статуса выплаты
func (s PayoutStatus) CanTransition(to PayoutStatus) bool {
	return payoutTransitions[s][to]
}

// PaymentMethodKind вид способа выплаты
type PaymentMethodKind string

const (
	MethodMobileMoney  PaymentMethodKind = "mobile_money"
	MethodBankTransfer PaymentMethodKind = "bank_transfer"
)

// MobileMoneyDetails реквизиты мобильного кошелька (MTN MoMo, Airtel Money)
type MobileMoneyDetails struct {
	Provider string `json:"provider" validate:"required,oneof=mtn airtel"`
	Phone    string `json:"phone" validate:"required,min=10,max=15"`
}

// BankDetails банковские реквизиты
type BankDetails struct {
	BankName      string `json:"bank_name" validate:"required"`
	AccountName   string `json:"account_name" validate:"required"`
	AccountNumber string `json:"account_number" validate:"required,min=6"`
}

// PaymentMethod - размеченное объединение: заполнено ровно одно из полей по Kind
type PaymentMethod struct {
	Kind        PaymentMethodKind   `json:"kind"`
	MobileMoney *MobileMoneyDetails `json:"mobile_money,omitempty"`
	Bank        *BankDetails        `json:"bank,omitempty"`
}

var ErrInvalidPaymentMethod = errors.New("invalid payment method")

// Check проверяет согласованность Kind и заполненных реквизитов
func (m PaymentMethod) Check() error {
	switch m.Kind {
	case MethodMobileMoney:
		if m.MobileMoney == nil || m.Bank != nil {
			return fmt.Errorf("%w: mobile_money details required", ErrInvalidPaymentMethod)
		}
	case MethodBankTransfer:
		if m.Bank == nil || m.MobileMoney != nil {
			return fmt.Errorf("%w: bank details required", ErrInvalidPaymentMethod)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidPaymentMethod, m.Kind)
	}
	return nil
}

// Value сериализует способ выплаты для колонки jsonb
func (m PaymentMethod) Value() ([]byte, error) {
	return json.Marshal(m)
}

// Payout заявка продавца на вывод заработанных средств
type Payout struct {
	ID          int64         `json:"id"`
	VendorID    int64         `json:"vendor_id"`
	Amount      int64         `json:"amount"`
	Status      PayoutStatus  `json:"status"`
	Method      PaymentMethod `json:"payment_method"`
	ProcessedBy *int64        `json:"processed_by,omitempty"`
	Notes       string        `json:"notes,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Balance баланс продавца
type Balance struct {
	TotalEarnings    int64 `json:"total_earnings"`
	PendingPayouts   int64 `json:"pending_payouts"`
	CompletedPayouts int64 `json:"completed_payouts"`
	Available        int64 `json:"available"`
}

// NewBalance считает доступный остаток: заработок минус ожидающие и завершённые выплаты
func NewBalance(earnings, pending, completed int64) Balance {
	return Balance{
		TotalEarnings:    earnings,
		PendingPayouts:   pending,
		CompletedPayouts: completed,
		Available:        earnings - pending - completed,
	}
}
