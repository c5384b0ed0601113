package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryType 交易紀錄類型
type EntryType string

const (
	EntryTypeCreate        EntryType = "create"
	EntryTypeDeposit       EntryType = "deposit"
	EntryTypeWithdraw      EntryType = "withdraw"
	EntryTypeTransferOut   EntryType = "transfer_out"
	EntryTypeTransferIn    EntryType = "transfer_in"
	EntryTypeInterest      EntryType = "interest"
	EntryTypeLoanIssued    EntryType = "loan_issued"
	EntryTypeLoanRepayment EntryType = "loan_repayment"
)

// Entry 交易紀錄 (不可變)
//
// Amount 為有號數：扣款為負、入帳為正。
// RelatedAccount 與 RelatedLoanID 只在轉帳與還款時填寫。
type Entry struct {
	ID             uuid.UUID
	AccountNumber  string
	Type           EntryType
	Amount         decimal.Decimal
	Timestamp      time.Time
	RelatedAccount string
	RelatedLoanID  string
}

// NewEntry 建立一筆交易紀錄，金額會先進位到最小貨幣單位
func NewEntry(accountNumber string, typ EntryType, amount decimal.Decimal, now time.Time) *Entry {
	return &Entry{
		ID:            uuid.New(),
		AccountNumber: accountNumber,
		Type:          typ,
		Amount:        RoundMoney(amount),
		Timestamp:     now,
	}
}

// WithRelatedAccount 設定對手帳號 (轉帳)
func (e *Entry) WithRelatedAccount(number string) *Entry {
	e.RelatedAccount = number
	return e
}

// WithRelatedLoan 設定關聯貸款 (放款 / 還款)
func (e *Entry) WithRelatedLoan(loanID string) *Entry {
	e.RelatedLoanID = loanID
	return e
}
