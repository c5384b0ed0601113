package domain

import "errors"

var (
	// ErrInvalidAmount 金額不合法 (需為正數，或初始餘額為負)
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrAccountNotFound 找不到帳戶
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountAlreadyExists 帳戶已存在
	ErrAccountAlreadyExists = errors.New("account already exists")

	// ErrLoanNotFound 找不到貸款 (或貸款不屬於該帳戶)
	ErrLoanNotFound = errors.New("loan not found")

	// ErrInsufficientFunds 餘額不足
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidDuration 貸款期數必須大於 0
	ErrInvalidDuration = errors.New("invalid duration")

	// ErrSameAccount 轉出與轉入帳戶相同
	ErrSameAccount = errors.New("cannot transfer to the same account")

	// ErrIneligible 帳戶不符合計息資格
	ErrIneligible = errors.New("account not eligible")

	// ErrRequestAlreadyProcessed 冪等鍵已使用過，本次請求未做任何變更
	ErrRequestAlreadyProcessed = errors.New("request already processed")

	// ErrContention 在重試次數內無法取得原子單元
	ErrContention = errors.New("contention: atomic unit could not be committed")

	// ErrStorageUnavailable 底層儲存無法使用
	ErrStorageUnavailable = errors.New("storage unavailable")
)
