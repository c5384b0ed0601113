package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// AccountSequenceName 帳號序號在 counter 中的名稱
	AccountSequenceName = "account_number"
	// AccountSequenceBase 序號初始值，第一個帳號為 ACC100001
	AccountSequenceBase int64 = 100000
	// AccountNumberPrefix 帳號前綴
	AccountNumberPrefix = "ACC"
)

// Account 帳戶
//
// Balance 永遠 >= 0，由 LedgerEngine 保證，儲存層不做檢查。
type Account struct {
	Number     string
	HolderName string
	Balance    decimal.Decimal
	CreatedAt  time.Time
}

func NewAccount(number, holderName string, balance decimal.Decimal, now time.Time) *Account {
	return &Account{
		Number:     number,
		HolderName: holderName,
		Balance:    RoundMoney(balance),
		CreatedAt:  now,
	}
}

// FormatAccountNumber 將序號格式化為帳號字串
func FormatAccountNumber(seq int64) string {
	return fmt.Sprintf("%s%d", AccountNumberPrefix, seq)
}
