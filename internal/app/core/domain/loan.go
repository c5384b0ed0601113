package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanStatus 貸款狀態
type LoanStatus string

const (
	LoanStatusActive LoanStatus = "active"
	LoanStatusPaid   LoanStatus = "paid"
)

// Loan 貸款
//
// 不變量: RemainingBalance >= 0，且 Status == paid 若且唯若 RemainingBalance == 0。
// RemainingBalance 只會遞減。
type Loan struct {
	ID               string
	AccountNumber    string
	Principal        decimal.Decimal
	InterestRate     decimal.Decimal
	DurationMonths   int
	MonthlyPayment   decimal.Decimal
	RemainingBalance decimal.Decimal
	Status           LoanStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewLoan 建立貸款並計算攤還金額
//
// totalPayable = principal * (1 + rate)
// monthly      = totalPayable / months
//
// 呼叫端需先確認 months > 0。
func NewLoan(accountNumber string, principal, rate decimal.Decimal, months int, now time.Time) *Loan {
	total := principal.Add(principal.Mul(rate))
	monthly := total.Div(decimal.NewFromInt(int64(months)))
	return &Loan{
		ID:               uuid.NewString(),
		AccountNumber:    accountNumber,
		Principal:        RoundMoney(principal),
		InterestRate:     rate,
		DurationMonths:   months,
		MonthlyPayment:   RoundMoney(monthly),
		RemainingBalance: RoundMoney(total),
		Status:           LoanStatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// TotalPayable 本金加利息
func (l *Loan) TotalPayable() decimal.Decimal {
	return RoundMoney(l.Principal.Add(l.Principal.Mul(l.InterestRate)))
}

func (l *Loan) IsPaid() bool {
	return l.Status == LoanStatusPaid
}

// ApplyPayment 扣減剩餘金額，最低到 0，到 0 時標記為已還清。
// 回傳實際扣減的金額 (超過剩餘金額的部分不計)。
func (l *Loan) ApplyPayment(amount decimal.Decimal, now time.Time) decimal.Decimal {
	if l.IsPaid() || !amount.IsPositive() {
		return decimal.Zero
	}
	applied := decimal.Min(RoundMoney(amount), l.RemainingBalance)
	l.RemainingBalance = l.RemainingBalance.Sub(applied)
	if !l.RemainingBalance.IsPositive() {
		l.RemainingBalance = decimal.Zero
		l.Status = LoanStatusPaid
	}
	l.UpdatedAt = now
	return applied
}
