package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// Store 是帳務系統的儲存介面 (Driven Port)
//
// 所有會改變狀態的操作都必須透過 RunInUnit 執行；
// fn 回傳錯誤時，該單元內的所有寫入都會被回滾。
type Store interface {
	// RunInUnit 以單一原子單元執行 fn
	RunInUnit(ctx context.Context, fn func(ctx context.Context, unit Unit) error) error

	// GetAccount 取得帳戶快照
	GetAccount(ctx context.Context, number string) (*domain.Account, error)
	// ListAccountNumbers 列出所有帳號
	ListAccountNumbers(ctx context.Context) ([]string, error)
	// ListEntries 依時間由新到舊列出帳戶的交易紀錄
	ListEntries(ctx context.Context, number string) ([]domain.Entry, error)
	// GetLoan 取得屬於該帳戶的貸款
	GetLoan(ctx context.Context, loanID, number string) (*domain.Loan, error)
	// ListLoans 列出帳戶的所有貸款
	ListLoans(ctx context.Context, number string) ([]domain.Loan, error)
}

// Unit 是原子單元內可用的操作
type Unit interface {
	// NextSequence 在儲存層原子遞增序號 (初始值 domain.AccountSequenceBase)
	NextSequence(ctx context.Context, name string) (int64, error)

	// GetAccount 讀取並鎖定帳戶直到單元結束
	GetAccount(ctx context.Context, number string) (*domain.Account, error)
	CreateAccount(ctx context.Context, account *domain.Account) error
	// ApplyDelta 原子地將 delta 加到餘額上並回傳新餘額，不檢查是否為負
	ApplyDelta(ctx context.Context, number string, delta decimal.Decimal) (decimal.Decimal, error)

	AppendEntry(ctx context.Context, entry *domain.Entry) error

	CreateLoan(ctx context.Context, loan *domain.Loan) error
	// GetLoan 讀取並鎖定貸款直到單元結束
	GetLoan(ctx context.Context, loanID, number string) (*domain.Loan, error)
	// ApplyPayment 扣減貸款剩餘金額 (最低到 0)，以 now 作為更新時間，回傳更新後的貸款
	ApplyPayment(ctx context.Context, loanID string, amount decimal.Decimal, now time.Time) (*domain.Loan, error)

	// ClaimIdempotencyKey 登記冪等鍵，已存在時回傳 true
	ClaimIdempotencyKey(ctx context.Context, key, operation string) (bool, error)
}
