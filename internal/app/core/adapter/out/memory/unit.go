package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

type opKind string

const (
	opSetCounter    opKind = "set_counter"
	opCreateAccount opKind = "create_account"
	opApplyDelta    opKind = "apply_delta"
	opAppendEntry   opKind = "append_entry"
	opCreateLoan    opKind = "create_loan"
	opUpdateLoan    opKind = "update_loan"
	opClaimKey      opKind = "claim_key"
)

// walOp 單一變更 (redo)，重放時依序套用
type walOp struct {
	Kind      opKind          `json:"kind"`
	Name      string          `json:"name,omitempty"`
	Value     int64           `json:"value,omitempty"`
	Number    string          `json:"number,omitempty"`
	Delta     decimal.Decimal `json:"delta"`
	Account   *domain.Account `json:"account,omitempty"`
	Entry     *domain.Entry   `json:"entry,omitempty"`
	Loan      *domain.Loan    `json:"loan,omitempty"`
	Key       string          `json:"key,omitempty"`
	Operation string          `json:"operation,omitempty"`
}

// walRecord 一個已提交的原子單元
type walRecord struct {
	Sequence    uint64  `json:"seq"`
	CommittedAt int64   `json:"committed_at"`
	Ops         []walOp `json:"ops"`
}

// apply 套用單一變更並回傳對應的 undo。呼叫端需持有寫鎖 (或在恢復階段)。
func (s *Store) apply(op walOp) (func(), error) {
	switch op.Kind {
	case opSetCounter:
		prev, existed := s.counters[op.Name]
		s.counters[op.Name] = op.Value
		return func() {
			if existed {
				s.counters[op.Name] = prev
			} else {
				delete(s.counters, op.Name)
			}
		}, nil

	case opCreateAccount:
		if _, ok := s.accounts[op.Account.Number]; ok {
			return nil, domain.ErrAccountAlreadyExists
		}
		cp := *op.Account
		s.accounts[cp.Number] = &cp
		s.accountOrder = append(s.accountOrder, cp.Number)
		return func() {
			delete(s.accounts, cp.Number)
			s.accountOrder = s.accountOrder[:len(s.accountOrder)-1]
		}, nil

	case opApplyDelta:
		acc, ok := s.accounts[op.Number]
		if !ok {
			return nil, domain.ErrAccountNotFound
		}
		prev := acc.Balance
		acc.Balance = domain.RoundMoney(acc.Balance.Add(op.Delta))
		return func() { acc.Balance = prev }, nil

	case opAppendEntry:
		number := op.Entry.AccountNumber
		prevLen := len(s.entries[number])
		s.entries[number] = append(s.entries[number], *op.Entry)
		return func() { s.entries[number] = s.entries[number][:prevLen] }, nil

	case opCreateLoan:
		if _, ok := s.loans[op.Loan.ID]; ok {
			return nil, fmt.Errorf("loan %s already exists", op.Loan.ID)
		}
		cp := *op.Loan
		s.loans[cp.ID] = &cp
		s.loansByAccount[cp.AccountNumber] = append(s.loansByAccount[cp.AccountNumber], cp.ID)
		return func() {
			delete(s.loans, cp.ID)
			ids := s.loansByAccount[cp.AccountNumber]
			s.loansByAccount[cp.AccountNumber] = ids[:len(ids)-1]
		}, nil

	case opUpdateLoan:
		current, ok := s.loans[op.Loan.ID]
		if !ok {
			return nil, domain.ErrLoanNotFound
		}
		prev := *current
		*current = *op.Loan
		return func() { *current = prev }, nil

	case opClaimKey:
		s.idempotencyKeys[op.Key] = op.Operation
		return func() { delete(s.idempotencyKeys, op.Key) }, nil
	}
	return nil, fmt.Errorf("unknown wal op %q", op.Kind)
}

// unit 實作 usecase.Unit；在 Store.RunInUnit 持有寫鎖期間使用
type unit struct {
	store *Store
	undo  []func()
	ops   []walOp
}

func (u *unit) record(op walOp) error {
	undo, err := u.store.apply(op)
	if err != nil {
		return err
	}
	u.undo = append(u.undo, undo)
	u.ops = append(u.ops, op)
	return nil
}

// rollback 依相反順序復原
func (u *unit) rollback() {
	for i := len(u.undo) - 1; i >= 0; i-- {
		u.undo[i]()
	}
	u.undo = nil
	u.ops = nil
}

func (u *unit) NextSequence(ctx context.Context, name string) (int64, error) {
	current, ok := u.store.counters[name]
	if !ok {
		current = domain.AccountSequenceBase
	}
	next := current + 1
	if err := u.record(walOp{Kind: opSetCounter, Name: name, Value: next}); err != nil {
		return 0, err
	}
	return next, nil
}

// GetAccount 單元持有寫鎖，讀到的就是鎖定後的值
func (u *unit) GetAccount(ctx context.Context, number string) (*domain.Account, error) {
	return u.store.account(number)
}

func (u *unit) CreateAccount(ctx context.Context, account *domain.Account) error {
	cp := *account
	return u.record(walOp{Kind: opCreateAccount, Account: &cp})
}

func (u *unit) ApplyDelta(ctx context.Context, number string, delta decimal.Decimal) (decimal.Decimal, error) {
	if err := u.record(walOp{Kind: opApplyDelta, Number: number, Delta: domain.RoundMoney(delta)}); err != nil {
		return decimal.Zero, err
	}
	return u.store.accounts[number].Balance, nil
}

func (u *unit) AppendEntry(ctx context.Context, entry *domain.Entry) error {
	cp := *entry
	return u.record(walOp{Kind: opAppendEntry, Entry: &cp})
}

func (u *unit) CreateLoan(ctx context.Context, loan *domain.Loan) error {
	cp := *loan
	return u.record(walOp{Kind: opCreateLoan, Loan: &cp})
}

func (u *unit) GetLoan(ctx context.Context, loanID, number string) (*domain.Loan, error) {
	return u.store.loan(loanID, number)
}

func (u *unit) ApplyPayment(ctx context.Context, loanID string, amount decimal.Decimal, now time.Time) (*domain.Loan, error) {
	current, ok := u.store.loans[loanID]
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	updated := *current
	updated.ApplyPayment(amount, now)
	if err := u.record(walOp{Kind: opUpdateLoan, Loan: &updated}); err != nil {
		return nil, err
	}
	out := updated
	return &out, nil
}

func (u *unit) ClaimIdempotencyKey(ctx context.Context, key, operation string) (bool, error) {
	if _, ok := u.store.idempotencyKeys[key]; ok {
		return true, nil
	}
	if err := u.record(walOp{Kind: opClaimKey, Key: key, Operation: operation}); err != nil {
		return false, err
	}
	return false, nil
}

var _ usecase.Unit = (*unit)(nil)
