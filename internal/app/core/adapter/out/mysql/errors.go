package mysql

import (
	"context"
	"errors"
	"fmt"

	mysqldriver "github.com/go-sql-driver/mysql"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// MySQL 錯誤碼
const (
	errCodeLockWaitTimeout uint16 = 1205
	errCodeDeadlock        uint16 = 1213
)

// businessErrors 由業務邏輯回傳，不需轉換
var businessErrors = []error{
	domain.ErrInvalidAmount,
	domain.ErrAccountNotFound,
	domain.ErrAccountAlreadyExists,
	domain.ErrLoanNotFound,
	domain.ErrInsufficientFunds,
	domain.ErrInvalidDuration,
	domain.ErrSameAccount,
	domain.ErrIneligible,
	domain.ErrRequestAlreadyProcessed,
	domain.ErrContention,
	domain.ErrStorageUnavailable,
}

// mapError 將資料庫錯誤轉成 domain 錯誤，保留原始錯誤鏈
//
//	死鎖 / 鎖等待逾時 -> ErrContention (單元已回滾，可以重試)
//	其他 -> ErrStorageUnavailable
func mapError(err error) error {
	if err == nil {
		return nil
	}
	for _, target := range businessErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case errCodeDeadlock, errCodeLockWaitTimeout:
			return fmt.Errorf("%w: %w", domain.ErrContention, err)
		}
	}
	return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
}
