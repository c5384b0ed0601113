package mysql

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

// unit 包裝一個進行中的 gorm 交易
type unit struct {
	tx  *gorm.DB
	now func() time.Time
}

// forUpdate 悲觀鎖，鎖到交易結束
func (u *unit) forUpdate() *gorm.DB {
	return u.tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// NextSequence 在資料庫層原子遞增序號 (UPDATE 會鎖住該列直到交易結束)
func (u *unit) NextSequence(ctx context.Context, name string) (int64, error) {
	res := u.tx.Model(&sqlCounter{}).
		Where("name = ?", name).
		UpdateColumn("value", gorm.Expr("value + 1"))
	if res.Error != nil {
		return 0, mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		// 尚未初始化 (Migrate 前就開戶)：直接建立第一筆
		first := &sqlCounter{Name: name, Value: domain.AccountSequenceBase + 1}
		if err := u.tx.Create(first).Error; err != nil {
			return 0, mapError(err)
		}
		return first.Value, nil
	}
	var counter sqlCounter
	if err := u.tx.Where("name = ?", name).First(&counter).Error; err != nil {
		return 0, mapError(err)
	}
	return counter.Value, nil
}

func (u *unit) GetAccount(ctx context.Context, number string) (*domain.Account, error) {
	var row sqlAccount
	if err := u.forUpdate().Where("account_number = ?", number).First(&row).Error; err != nil {
		return nil, notFound(err, domain.ErrAccountNotFound)
	}
	return row.toDomain(), nil
}

func (u *unit) CreateAccount(ctx context.Context, account *domain.Account) error {
	return mapError(u.tx.Create(accountFromDomain(account)).Error)
}

// ApplyDelta 以 balance = balance + delta 原子更新，不做讀取後寫回
func (u *unit) ApplyDelta(ctx context.Context, number string, delta decimal.Decimal) (decimal.Decimal, error) {
	delta = domain.RoundMoney(delta)
	if !delta.IsZero() {
		res := u.tx.Model(&sqlAccount{}).
			Where("account_number = ?", number).
			UpdateColumns(map[string]any{
				"balance":    gorm.Expr("balance + CAST(? AS DECIMAL(20,2))", delta.StringFixed(domain.MinorUnitPlaces)),
				"updated_at": u.now(),
			})
		if res.Error != nil {
			return decimal.Zero, mapError(res.Error)
		}
		if res.RowsAffected == 0 {
			return decimal.Zero, domain.ErrAccountNotFound
		}
	}
	var row sqlAccount
	if err := u.tx.Select("balance").Where("account_number = ?", number).First(&row).Error; err != nil {
		return decimal.Zero, notFound(err, domain.ErrAccountNotFound)
	}
	return row.Balance, nil
}

func (u *unit) AppendEntry(ctx context.Context, entry *domain.Entry) error {
	return mapError(u.tx.Create(entryFromDomain(entry)).Error)
}

func (u *unit) CreateLoan(ctx context.Context, loan *domain.Loan) error {
	return mapError(u.tx.Create(loanFromDomain(loan)).Error)
}

func (u *unit) GetLoan(ctx context.Context, loanID, number string) (*domain.Loan, error) {
	var row sqlLoan
	err := u.forUpdate().
		Where("loan_id = ? AND account_number = ?", loanID, number).
		First(&row).Error
	if err != nil {
		return nil, notFound(err, domain.ErrLoanNotFound)
	}
	return row.toDomain(), nil
}

// ApplyPayment 鎖定貸款列後扣減，最低到 0 並標記已還清
func (u *unit) ApplyPayment(ctx context.Context, loanID string, amount decimal.Decimal, now time.Time) (*domain.Loan, error) {
	var row sqlLoan
	if err := u.forUpdate().Where("loan_id = ?", loanID).First(&row).Error; err != nil {
		return nil, notFound(err, domain.ErrLoanNotFound)
	}
	loan := row.toDomain()
	loan.ApplyPayment(amount, now)

	err := u.tx.Model(&sqlLoan{}).
		Where("loan_id = ?", loanID).
		UpdateColumns(map[string]any{
			"remaining_balance": loan.RemainingBalance.StringFixed(domain.MinorUnitPlaces),
			"status":            string(loan.Status),
			"updated_at":        loan.UpdatedAt,
		}).Error
	if err != nil {
		return nil, mapError(err)
	}
	return loan, nil
}

// ClaimIdempotencyKey 以主鍵衝突判斷是否處理過；併發的相同鍵會等待前一個交易結束
func (u *unit) ClaimIdempotencyKey(ctx context.Context, key, operation string) (bool, error) {
	res := u.tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&sqlIdempotencyKey{IdempotencyKey: key, Operation: operation, CreatedAt: u.now()})
	if res.Error != nil {
		return false, mapError(res.Error)
	}
	return res.RowsAffected == 0, nil
}

var _ usecase.Unit = (*unit)(nil)
