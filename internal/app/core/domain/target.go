package domain

// InterestTarget 計息對象：單一帳戶或全部帳戶
type InterestTarget struct {
	all           bool
	accountNumber string
}

// AllAccounts 對所有帳戶計息，每個帳戶各自是一個原子單元
func AllAccounts() InterestTarget {
	return InterestTarget{all: true}
}

// SingleAccount 只對指定帳戶計息
func SingleAccount(number string) InterestTarget {
	return InterestTarget{accountNumber: number}
}

func (t InterestTarget) IsAll() bool {
	return t.all
}

// AccountNumber 在 IsAll() 為 true 時回傳空字串
func (t InterestTarget) AccountNumber() string {
	return t.accountNumber
}
