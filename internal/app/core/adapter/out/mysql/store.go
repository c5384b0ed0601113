package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/pkg/mysql"
)

// MySQLStore 以 MySQL (InnoDB) 實作 usecase.Store
//
// 原子單元 = 一個資料庫交易；單元內的讀取使用 SELECT ... FOR UPDATE (悲觀鎖)。
type MySQLStore struct {
	client *mysql.Client
	now    func() time.Time
}

func NewMySQLStore(client *mysql.Client) *MySQLStore {
	return &MySQLStore{
		client: client,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Migrate 建立資料表並初始化帳號序號
func (s *MySQLStore) Migrate(ctx context.Context) error {
	db := s.client.DB().WithContext(ctx)
	err := db.AutoMigrate(
		&sqlAccount{},
		&sqlTransaction{},
		&sqlLoan{},
		&sqlCounter{},
		&sqlIdempotencyKey{},
	)
	if err != nil {
		return mapError(err)
	}
	// 已存在就不動，避免重啟時把序號重置
	seed := &sqlCounter{Name: domain.AccountSequenceName, Value: domain.AccountSequenceBase}
	return mapError(db.Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error)
}

// RunInUnit 以單一資料庫交易執行 fn，fn 回傳錯誤時整筆回滾
//
// fn 的錯誤原樣回傳 (unit 的資料庫錯誤在 unit 內已轉換)；
// 只有 BEGIN / COMMIT 本身的錯誤在這裡轉換。
func (s *MySQLStore) RunInUnit(ctx context.Context, fn func(ctx context.Context, unit usecase.Unit) error) error {
	var fnErr error
	err := s.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(ctx, &unit{tx: tx, now: s.now})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	return mapError(err)
}

// GetAccount 取得帳戶餘額快照
func (s *MySQLStore) GetAccount(ctx context.Context, number string) (*domain.Account, error) {
	var row sqlAccount
	err := s.client.DB().WithContext(ctx).Where("account_number = ?", number).First(&row).Error
	if err != nil {
		return nil, notFound(err, domain.ErrAccountNotFound)
	}
	return row.toDomain(), nil
}

func (s *MySQLStore) ListAccountNumbers(ctx context.Context) ([]string, error) {
	var numbers []string
	err := s.client.DB().WithContext(ctx).
		Model(&sqlAccount{}).
		Order("created_at, account_number").
		Pluck("account_number", &numbers).Error
	if err != nil {
		return nil, mapError(err)
	}
	return numbers, nil
}

// ListEntries 依時間由新到舊列出交易紀錄 (同一時間以寫入順序倒序)
func (s *MySQLStore) ListEntries(ctx context.Context, number string) ([]domain.Entry, error) {
	var rows []sqlTransaction
	err := s.client.DB().WithContext(ctx).
		Where("account_number = ?", number).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, mapError(err)
	}
	out := make([]domain.Entry, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (s *MySQLStore) GetLoan(ctx context.Context, loanID, number string) (*domain.Loan, error) {
	var row sqlLoan
	err := s.client.DB().WithContext(ctx).
		Where("loan_id = ? AND account_number = ?", loanID, number).
		First(&row).Error
	if err != nil {
		return nil, notFound(err, domain.ErrLoanNotFound)
	}
	return row.toDomain(), nil
}

func (s *MySQLStore) ListLoans(ctx context.Context, number string) ([]domain.Loan, error) {
	var rows []sqlLoan
	err := s.client.DB().WithContext(ctx).
		Where("account_number = ?", number).
		Order("created_at, loan_id").
		Find(&rows).Error
	if err != nil {
		return nil, mapError(err)
	}
	out := make([]domain.Loan, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].toDomain())
	}
	return out, nil
}

// notFound 將 gorm.ErrRecordNotFound 轉成指定的 domain 錯誤
func notFound(err, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return mapError(err)
}

var _ usecase.Store = (*MySQLStore)(nil)
