package grpc

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

// 金額在 JSON 中以字串傳遞 (decimal 預設行為)，避免浮點誤差

type CreateAccountRequest struct {
	RefID          string          `json:"ref_id,omitempty"`
	HolderName     string          `json:"holder_name"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

// AmountRequest 存款與提款共用
type AmountRequest struct {
	RefID         string          `json:"ref_id,omitempty"`
	AccountNumber string          `json:"account_number"`
	Amount        decimal.Decimal `json:"amount"`
}

type TransferRequest struct {
	RefID       string          `json:"ref_id,omitempty"`
	FromAccount string          `json:"from_account"`
	ToAccount   string          `json:"to_account"`
	Amount      decimal.Decimal `json:"amount"`
}

type AccountRequest struct {
	AccountNumber string `json:"account_number"`
}

// ApplyInterestRequest All 與 AccountNumber 必須恰好指定一個
type ApplyInterestRequest struct {
	All           bool            `json:"all,omitempty"`
	AccountNumber string          `json:"account_number,omitempty"`
	Rate          decimal.Decimal `json:"rate"`
}

type ApplyLoanRequest struct {
	RefID          string          `json:"ref_id,omitempty"`
	AccountNumber  string          `json:"account_number"`
	Principal      decimal.Decimal `json:"principal"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	DurationMonths int             `json:"duration_months"`
}

type RepayLoanRequest struct {
	RefID         string          `json:"ref_id,omitempty"`
	AccountNumber string          `json:"account_number"`
	LoanID        string          `json:"loan_id"`
	Payment       decimal.Decimal `json:"payment"`
}

type AccountResponse struct {
	AccountNumber string          `json:"account_number"`
	HolderName    string          `json:"holder_name"`
	Balance       decimal.Decimal `json:"balance"`
	CreatedAt     time.Time       `json:"created_at"`
}

type TransferResponse struct {
	From AccountResponse `json:"from"`
	To   AccountResponse `json:"to"`
}

type EntryMessage struct {
	ID             string          `json:"id"`
	AccountNumber  string          `json:"account_number"`
	Type           string          `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	Timestamp      time.Time       `json:"timestamp"`
	RelatedAccount string          `json:"related_account,omitempty"`
	RelatedLoanID  string          `json:"related_loan_id,omitempty"`
}

type ListTransactionsResponse struct {
	Entries []EntryMessage `json:"entries"`
}

type InterestResultMessage struct {
	AccountNumber string          `json:"account_number"`
	Interest      decimal.Decimal `json:"interest"`
	Balance       decimal.Decimal `json:"balance"`
	Skipped       bool            `json:"skipped,omitempty"`
	Error         string          `json:"error,omitempty"`
}

type ApplyInterestResponse struct {
	Results []InterestResultMessage `json:"results"`
}

type LoanMessage struct {
	LoanID           string          `json:"loan_id"`
	AccountNumber    string          `json:"account_number"`
	Principal        decimal.Decimal `json:"principal"`
	InterestRate     decimal.Decimal `json:"interest_rate"`
	DurationMonths   int             `json:"duration_months"`
	TotalPayable     decimal.Decimal `json:"total_payable"`
	MonthlyPayment   decimal.Decimal `json:"monthly_payment"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	Status           string          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
}

type RepayLoanResponse struct {
	Loan        LoanMessage     `json:"loan"`
	Balance     decimal.Decimal `json:"balance"`
	Applied     decimal.Decimal `json:"applied"`
	AlreadyPaid bool            `json:"already_paid,omitempty"`
}

type ListLoansResponse struct {
	Loans []LoanMessage `json:"loans"`
}

func toAccountResponse(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		AccountNumber: a.Number,
		HolderName:    a.HolderName,
		Balance:       a.Balance,
		CreatedAt:     a.CreatedAt,
	}
}

func toEntryMessage(e domain.Entry) EntryMessage {
	return EntryMessage{
		ID:             e.ID.String(),
		AccountNumber:  e.AccountNumber,
		Type:           string(e.Type),
		Amount:         e.Amount,
		Timestamp:      e.Timestamp,
		RelatedAccount: e.RelatedAccount,
		RelatedLoanID:  e.RelatedLoanID,
	}
}

func toLoanMessage(l *domain.Loan) LoanMessage {
	return LoanMessage{
		LoanID:           l.ID,
		AccountNumber:    l.AccountNumber,
		Principal:        l.Principal,
		InterestRate:     l.InterestRate,
		DurationMonths:   l.DurationMonths,
		TotalPayable:     l.TotalPayable(),
		MonthlyPayment:   l.MonthlyPayment,
		RemainingBalance: l.RemainingBalance,
		Status:           string(l.Status),
		CreatedAt:        l.CreatedAt,
	}
}

func toInterestResultMessage(r usecase.InterestResult) InterestResultMessage {
	msg := InterestResultMessage{
		AccountNumber: r.AccountNumber,
		Interest:      r.Interest,
		Balance:       r.Balance,
		Skipped:       r.Skipped,
	}
	if r.Err != nil {
		msg.Error = r.Err.Error()
	}
	return msg
}
