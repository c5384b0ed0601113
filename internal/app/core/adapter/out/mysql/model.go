package mysql

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// sqlAccount 對應資料庫的 accounts 表
type sqlAccount struct {
	AccountNumber string          `gorm:"column:account_number;primaryKey;size:32"`
	HolderName    string          `gorm:"size:255;not null"`
	Balance       decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	CreatedAt     time.Time       `gorm:"type:datetime(6);index"`
	UpdatedAt     time.Time       `gorm:"type:datetime(6)"`
}

func (*sqlAccount) TableName() string {
	return "accounts"
}

// sqlTransaction 對應資料庫的 transactions 表 (只追加，不更新)
type sqlTransaction struct {
	ID             int64           `gorm:"primaryKey;autoIncrement"`
	RefID          []byte          `gorm:"column:ref_id;type:binary(16);uniqueIndex"` // 對應 domain.Entry.ID
	AccountNumber  string          `gorm:"size:32;not null;index:idx_account_created,priority:1"`
	Type           string          `gorm:"size:32;not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	RelatedAccount string          `gorm:"size:32"`
	RelatedLoanID  string          `gorm:"column:related_loan_id;size:36"`
	CreatedAt      time.Time       `gorm:"type:datetime(6);index:idx_account_created,priority:2"`
}

func (*sqlTransaction) TableName() string {
	return "transactions"
}

// sqlLoan 對應資料庫的 loans 表
type sqlLoan struct {
	LoanID           string          `gorm:"column:loan_id;primaryKey;size:36"`
	AccountNumber    string          `gorm:"size:32;not null;index"`
	Principal        decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	InterestRate     decimal.Decimal `gorm:"type:decimal(12,6);not null"`
	DurationMonths   int             `gorm:"not null"`
	MonthlyPayment   decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	RemainingBalance decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	Status           string          `gorm:"size:16;not null"`
	CreatedAt        time.Time       `gorm:"type:datetime(6)"`
	UpdatedAt        time.Time       `gorm:"type:datetime(6)"`
}

func (*sqlLoan) TableName() string {
	return "loans"
}

// sqlCounter 序號表，以 UPDATE value = value + 1 原子遞增
type sqlCounter struct {
	Name  string `gorm:"primaryKey;size:64"`
	Value int64  `gorm:"not null"`
}

func (*sqlCounter) TableName() string {
	return "counters"
}

// sqlIdempotencyKey 已處理過的請求
type sqlIdempotencyKey struct {
	IdempotencyKey string    `gorm:"column:idempotency_key;primaryKey;size:128"`
	Operation      string    `gorm:"size:32;not null"`
	CreatedAt      time.Time `gorm:"type:datetime(6)"`
}

func (*sqlIdempotencyKey) TableName() string {
	return "idempotency_keys"
}

func accountFromDomain(a *domain.Account) *sqlAccount {
	return &sqlAccount{
		AccountNumber: a.Number,
		HolderName:    a.HolderName,
		Balance:       domain.RoundMoney(a.Balance),
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.CreatedAt,
	}
}

func (r *sqlAccount) toDomain() *domain.Account {
	return &domain.Account{
		Number:     r.AccountNumber,
		HolderName: r.HolderName,
		Balance:    r.Balance,
		CreatedAt:  r.CreatedAt,
	}
}

func entryFromDomain(e *domain.Entry) *sqlTransaction {
	return &sqlTransaction{
		RefID:          e.ID[:],
		AccountNumber:  e.AccountNumber,
		Type:           string(e.Type),
		Amount:         domain.RoundMoney(e.Amount),
		RelatedAccount: e.RelatedAccount,
		RelatedLoanID:  e.RelatedLoanID,
		CreatedAt:      e.Timestamp,
	}
}

func (r *sqlTransaction) toDomain() domain.Entry {
	var id uuid.UUID
	copy(id[:], r.RefID)
	return domain.Entry{
		ID:             id,
		AccountNumber:  r.AccountNumber,
		Type:           domain.EntryType(r.Type),
		Amount:         r.Amount,
		Timestamp:      r.CreatedAt,
		RelatedAccount: r.RelatedAccount,
		RelatedLoanID:  r.RelatedLoanID,
	}
}

func loanFromDomain(l *domain.Loan) *sqlLoan {
	return &sqlLoan{
		LoanID:           l.ID,
		AccountNumber:    l.AccountNumber,
		Principal:        domain.RoundMoney(l.Principal),
		InterestRate:     l.InterestRate,
		DurationMonths:   l.DurationMonths,
		MonthlyPayment:   domain.RoundMoney(l.MonthlyPayment),
		RemainingBalance: domain.RoundMoney(l.RemainingBalance),
		Status:           string(l.Status),
		CreatedAt:        l.CreatedAt,
		UpdatedAt:        l.UpdatedAt,
	}
}

func (r *sqlLoan) toDomain() *domain.Loan {
	return &domain.Loan{
		ID:               r.LoanID,
		AccountNumber:    r.AccountNumber,
		Principal:        r.Principal,
		InterestRate:     r.InterestRate,
		DurationMonths:   r.DurationMonths,
		MonthlyPayment:   r.MonthlyPayment,
		RemainingBalance: r.RemainingBalance,
		Status:           domain.LoanStatus(r.Status),
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}
