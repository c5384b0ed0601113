package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// 操作名稱，用於冪等鍵與日誌
const (
	OpCreateAccount = "create_account"
	OpDeposit       = "deposit"
	OpWithdraw      = "withdraw"
	OpTransfer      = "transfer"
	OpApplyInterest = "apply_interest"
	OpApplyLoan     = "apply_loan"
	OpRepayLoan     = "repay_loan"
)

const (
	defaultMaxRetries   = 3
	defaultRetryBackoff = 10 * time.Millisecond
)

// LedgerEngine 是核心業務邏輯層
//
// 每個寫入操作都是一個原子單元：驗證 -> 開啟單元 -> 讀取(鎖定) -> 檢查 -> 寫入 + 記帳。
// 任何一步失敗，整個單元回滾。
type LedgerEngine struct {
	store        Store
	now          func() time.Time
	maxRetries   int
	retryBackoff time.Duration
	logger       zerolog.Logger
	eligible     func(*domain.Account) error
}

// EngineOption 定義了 LedgerEngine 的配置選項函數
type EngineOption func(*LedgerEngine)

// WithClock 替換時間來源 (測試用)
func WithClock(now func() time.Time) EngineOption {
	return func(e *LedgerEngine) {
		e.now = now
	}
}

// WithRetry 設定單元遇到 ErrContention 時的重試次數與退避時間
func WithRetry(maxRetries int, backoff time.Duration) EngineOption {
	return func(e *LedgerEngine) {
		if maxRetries >= 0 {
			e.maxRetries = maxRetries
		}
		if backoff >= 0 {
			e.retryBackoff = backoff
		}
	}
}

// WithLogger 設定 logger，預設不輸出
func WithLogger(logger zerolog.Logger) EngineOption {
	return func(e *LedgerEngine) {
		e.logger = logger
	}
}

// WithInterestEligibility 設定計息資格規則。
// 規則回傳錯誤時，該帳戶不計息，但不影響其他帳戶。
func WithInterestEligibility(fn func(*domain.Account) error) EngineOption {
	return func(e *LedgerEngine) {
		e.eligible = fn
	}
}

// NewLedgerEngine 建立 LedgerEngine；預設重試 3 次、退避 10ms
func NewLedgerEngine(store Store, opts ...EngineOption) *LedgerEngine {
	e := &LedgerEngine{
		store:        store,
		now:          time.Now,
		maxRetries:   defaultMaxRetries,
		retryBackoff: defaultRetryBackoff,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type writeOptions struct {
	idempotencyKey string
}

// WriteOption 寫入操作的選項
type WriteOption func(*writeOptions)

// WithIdempotencyKey 帶入呼叫端產生的冪等鍵；同一把鍵只會成功套用一次
func WithIdempotencyKey(key string) WriteOption {
	return func(o *writeOptions) {
		o.idempotencyKey = key
	}
}

func collectWriteOptions(opts []WriteOption) writeOptions {
	var wo writeOptions
	for _, opt := range opts {
		opt(&wo)
	}
	return wo
}

// TransferResult 轉帳後雙方的帳戶快照
type TransferResult struct {
	From *domain.Account
	To   *domain.Account
}

// InterestResult 單一帳戶的計息結果
//
// Err 不為 nil 時表示該帳戶的原子單元失敗，餘額未變動。
// Skipped 表示利息進位後為 0，沒有寫入任何紀錄。
type InterestResult struct {
	AccountNumber string
	Interest      decimal.Decimal
	Balance       decimal.Decimal
	Skipped       bool
	Err           error
}

// RepaymentResult 還款結果
//
// AlreadyPaid 為 true 時，貸款先前已還清，本次沒有任何變動。
// Applied 為自帳戶扣除的金額。
type RepaymentResult struct {
	Loan        *domain.Loan
	Balance     decimal.Decimal
	Applied     decimal.Decimal
	AlreadyPaid bool
}

// runUnit 執行一個原子單元，遇到 ErrContention 時在預算內重試。
// 只有未提交的單元會被重試，所以不會重複套用。
func (e *LedgerEngine) runUnit(ctx context.Context, op, key string, fn func(ctx context.Context, unit Unit) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = e.store.RunInUnit(ctx, func(ctx context.Context, unit Unit) error {
			if key != "" {
				claimed, err := unit.ClaimIdempotencyKey(ctx, key, op)
				if err != nil {
					return err
				}
				if claimed {
					return domain.ErrRequestAlreadyProcessed
				}
			}
			return fn(ctx, unit)
		})
		if !errors.Is(err, domain.ErrContention) || attempt >= e.maxRetries {
			break
		}
		e.logger.Warn().Str("op", op).Int("attempt", attempt+1).Msg("unit contended, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.retryBackoff * time.Duration(attempt+1)):
		}
	}
	if err != nil {
		e.logger.Debug().Str("op", op).Err(err).Msg("unit failed")
	}
	return err
}

// CreateAccount 開戶
//
// 參數:
//
//	name: 戶名
//	initialBalance: 初始餘額 (>= 0)
//
// 回傳:
//
//	*domain.Account: 新帳戶
//	error: ErrInvalidAmount 或儲存錯誤
func (e *LedgerEngine) CreateAccount(ctx context.Context, name string, initialBalance decimal.Decimal, opts ...WriteOption) (*domain.Account, error) {
	initialBalance = domain.RoundMoney(initialBalance)
	if initialBalance.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}
	wo := collectWriteOptions(opts)

	var account *domain.Account
	err := e.runUnit(ctx, OpCreateAccount, wo.idempotencyKey, func(ctx context.Context, unit Unit) error {
		seq, err := unit.NextSequence(ctx, domain.AccountSequenceName)
		if err != nil {
			return err
		}
		now := e.now()
		account = domain.NewAccount(domain.FormatAccountNumber(seq), name, initialBalance, now)
		if err := unit.CreateAccount(ctx, account); err != nil {
			return err
		}
		return unit.AppendEntry(ctx, domain.NewEntry(account.Number, domain.EntryTypeCreate, initialBalance, now))
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info().Str("account", account.Number).Str("balance", account.Balance.StringFixed(domain.MinorUnitPlaces)).Msg("account created")
	return account, nil
}

// Deposit 存款
func (e *LedgerEngine) Deposit(ctx context.Context, number string, amount decimal.Decimal, opts ...WriteOption) (*domain.Account, error) {
	amount, err := positiveAmount(amount)
	if err != nil {
		return nil, err
	}
	wo := collectWriteOptions(opts)

	var account *domain.Account
	err = e.runUnit(ctx, OpDeposit, wo.idempotencyKey, func(ctx context.Context, unit Unit) error {
		acc, err := unit.GetAccount(ctx, number)
		if err != nil {
			return err
		}
		balance, err := unit.ApplyDelta(ctx, number, amount)
		if err != nil {
			return err
		}
		if err := unit.AppendEntry(ctx, domain.NewEntry(number, domain.EntryTypeDeposit, amount, e.now())); err != nil {
			return err
		}
		acc.Balance = balance
		account = acc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Withdraw 提款，餘額不得低於 0
func (e *LedgerEngine) Withdraw(ctx context.Context, number string, amount decimal.Decimal, opts ...WriteOption) (*domain.Account, error) {
	amount, err := positiveAmount(amount)
	if err != nil {
		return nil, err
	}
	wo := collectWriteOptions(opts)

	var account *domain.Account
	err = e.runUnit(ctx, OpWithdraw, wo.idempotencyKey, func(ctx context.Context, unit Unit) error {
		acc, err := unit.GetAccount(ctx, number)
		if err != nil {
			return err
		}
		if acc.Balance.LessThan(amount) {
			return domain.ErrInsufficientFunds
		}
		balance, err := e.debit(ctx, unit, number, amount)
		if err != nil {
			return err
		}
		if err := unit.AppendEntry(ctx, domain.NewEntry(number, domain.EntryTypeWithdraw, amount.Neg(), e.now())); err != nil {
			return err
		}
		acc.Balance = balance
		account = acc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Transfer 轉帳
//
// 扣款、入帳與雙邊紀錄在同一個原子單元內完成；任一邊失敗，兩邊都不變。
// 帳戶依帳號排序後鎖定以避免死鎖。
func (e *LedgerEngine) Transfer(ctx context.Context, from, to string, amount decimal.Decimal, opts ...WriteOption) (*TransferResult, error) {
	amount, err := positiveAmount(amount)
	if err != nil {
		return nil, err
	}
	if from == to {
		return nil, domain.ErrSameAccount
	}
	wo := collectWriteOptions(opts)

	var result *TransferResult
	err = e.runUnit(ctx, OpTransfer, wo.idempotencyKey, func(ctx context.Context, unit Unit) error {
		locked := make(map[string]*domain.Account, 2)
		for _, number := range lockOrder(from, to) {
			acc, err := unit.GetAccount(ctx, number)
			if err != nil {
				return err
			}
			locked[number] = acc
		}
		sender, receiver := locked[from], locked[to]
		if sender.Balance.LessThan(amount) {
			return domain.ErrInsufficientFunds
		}

		senderBalance, err := e.debit(ctx, unit, from, amount)
		if err != nil {
			return err
		}
		receiverBalance, err := unit.ApplyDelta(ctx, to, amount)
		if err != nil {
			return err
		}

		now := e.now()
		out := domain.NewEntry(from, domain.EntryTypeTransferOut, amount.Neg(), now).WithRelatedAccount(to)
		in := domain.NewEntry(to, domain.EntryTypeTransferIn, amount, now).WithRelatedAccount(from)
		if err := unit.AppendEntry(ctx, out); err != nil {
			return err
		}
		if err := unit.AppendEntry(ctx, in); err != nil {
			return err
		}

		sender.Balance = senderBalance
		receiver.Balance = receiverBalance
		result = &TransferResult{From: sender, To: receiver}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info().Str("from", from).Str("to", to).Str("amount", amount.StringFixed(domain.MinorUnitPlaces)).Msg("transfer committed")
	return result, nil
}

// ApplyInterest 計息
//
// 單一帳戶: 帳戶不存在回傳 ErrAccountNotFound。
// 全部帳戶: 每個帳戶各自一個原子單元，單一帳戶失敗記錄在 InterestResult.Err，不中斷其他帳戶。
// rate 可以是負數 (罰息)。
func (e *LedgerEngine) ApplyInterest(ctx context.Context, target domain.InterestTarget, rate decimal.Decimal) ([]InterestResult, error) {
	if !target.IsAll() {
		res := e.applyInterestTo(ctx, target.AccountNumber(), rate)
		if res.Err != nil {
			return nil, res.Err
		}
		return []InterestResult{res}, nil
	}

	numbers, err := e.store.ListAccountNumbers(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]InterestResult, 0, len(numbers))
	failed := 0
	for _, number := range numbers {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := e.applyInterestTo(ctx, number, rate)
		if res.Err != nil {
			failed++
			e.logger.Warn().Str("account", number).Err(res.Err).Msg("interest not applied")
		}
		results = append(results, res)
	}
	e.logger.Info().Int("accounts", len(numbers)).Int("failed", failed).Str("rate", rate.String()).Msg("interest sweep finished")
	return results, nil
}

func (e *LedgerEngine) applyInterestTo(ctx context.Context, number string, rate decimal.Decimal) InterestResult {
	res := InterestResult{AccountNumber: number}
	res.Err = e.runUnit(ctx, OpApplyInterest, "", func(ctx context.Context, unit Unit) error {
		acc, err := unit.GetAccount(ctx, number)
		if err != nil {
			return err
		}
		if e.eligible != nil {
			if err := e.eligible(acc); err != nil {
				return err
			}
		}
		interest := domain.RoundMoney(acc.Balance.Mul(rate))
		if interest.IsZero() {
			res.Interest = interest
			res.Balance = acc.Balance
			res.Skipped = true
			return nil
		}
		balance, err := e.debitOrCredit(ctx, unit, number, interest)
		if err != nil {
			return err
		}
		if err := unit.AppendEntry(ctx, domain.NewEntry(number, domain.EntryTypeInterest, interest, e.now())); err != nil {
			return err
		}
		res.Interest = interest
		res.Balance = balance
		return nil
	})
	return res
}

// ApplyLoan 放款：建立貸款並將本金撥入帳戶
func (e *LedgerEngine) ApplyLoan(ctx context.Context, number string, principal, rate decimal.Decimal, months int, opts ...WriteOption) (*domain.Loan, error) {
	if months <= 0 {
		return nil, domain.ErrInvalidDuration
	}
	principal, err := positiveAmount(principal)
	if err != nil {
		return nil, err
	}
	// 應還總額進位後必須為正，否則貸款一建立就違反 active => 剩餘金額 > 0
	if total := domain.RoundMoney(principal.Mul(decimal.NewFromInt(1).Add(rate))); !total.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	wo := collectWriteOptions(opts)

	var loan *domain.Loan
	err = e.runUnit(ctx, OpApplyLoan, wo.idempotencyKey, func(ctx context.Context, unit Unit) error {
		if _, err := unit.GetAccount(ctx, number); err != nil {
			return err
		}
		now := e.now()
		loan = domain.NewLoan(number, principal, rate, months, now)
		if err := unit.CreateLoan(ctx, loan); err != nil {
			return err
		}
		if _, err := unit.ApplyDelta(ctx, number, principal); err != nil {
			return err
		}
		entry := domain.NewEntry(number, domain.EntryTypeLoanIssued, principal, now).WithRelatedLoan(loan.ID)
		return unit.AppendEntry(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info().Str("account", number).Str("loan", loan.ID).Str("total_payable", loan.RemainingBalance.StringFixed(domain.MinorUnitPlaces)).Msg("loan issued")
	return loan, nil
}

// RepayLoan 還款
//
// 帳戶餘額必須 >= payment，扣款金額即為 payment；貸款剩餘金額扣減到 0 為止。
// 貸款已還清時回傳 AlreadyPaid=true 且不做任何變動。
func (e *LedgerEngine) RepayLoan(ctx context.Context, number, loanID string, payment decimal.Decimal, opts ...WriteOption) (*RepaymentResult, error) {
	payment, err := positiveAmount(payment)
	if err != nil {
		return nil, err
	}
	wo := collectWriteOptions(opts)

	var result *RepaymentResult
	err = e.runUnit(ctx, OpRepayLoan, wo.idempotencyKey, func(ctx context.Context, unit Unit) error {
		loan, err := unit.GetLoan(ctx, loanID, number)
		if err != nil {
			return err
		}
		acc, err := unit.GetAccount(ctx, number)
		if err != nil {
			return err
		}
		if loan.IsPaid() {
			result = &RepaymentResult{Loan: loan, Balance: acc.Balance, Applied: decimal.Zero, AlreadyPaid: true}
			return nil
		}

		if acc.Balance.LessThan(payment) {
			return domain.ErrInsufficientFunds
		}
		balance, err := e.debit(ctx, unit, number, payment)
		if err != nil {
			return err
		}
		now := e.now()
		entry := domain.NewEntry(number, domain.EntryTypeLoanRepayment, payment.Neg(), now).WithRelatedLoan(loanID)
		if err := unit.AppendEntry(ctx, entry); err != nil {
			return err
		}
		updated, err := unit.ApplyPayment(ctx, loanID, payment, now)
		if err != nil {
			return err
		}
		result = &RepaymentResult{Loan: updated, Balance: balance, Applied: payment}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Loan.IsPaid() && !result.AlreadyPaid {
		e.logger.Info().Str("account", number).Str("loan", loanID).Msg("loan fully repaid")
	}
	return result, nil
}

// CheckBalance 查詢餘額
func (e *LedgerEngine) CheckBalance(ctx context.Context, number string) (*domain.Account, error) {
	return e.store.GetAccount(ctx, number)
}

// ShowTransactions 由新到舊列出交易紀錄
func (e *LedgerEngine) ShowTransactions(ctx context.Context, number string) ([]domain.Entry, error) {
	return e.store.ListEntries(ctx, number)
}

// ViewLoans 列出帳戶的貸款
func (e *LedgerEngine) ViewLoans(ctx context.Context, number string) ([]domain.Loan, error) {
	if _, err := e.store.GetAccount(ctx, number); err != nil {
		return nil, err
	}
	return e.store.ListLoans(ctx, number)
}

// debit 扣款並在結果為負時中止單元 (併發下的最後一道防線)
func (e *LedgerEngine) debit(ctx context.Context, unit Unit, number string, amount decimal.Decimal) (decimal.Decimal, error) {
	return e.debitOrCredit(ctx, unit, number, amount.Neg())
}

func (e *LedgerEngine) debitOrCredit(ctx context.Context, unit Unit, number string, delta decimal.Decimal) (decimal.Decimal, error) {
	balance, err := unit.ApplyDelta(ctx, number, delta)
	if err != nil {
		return decimal.Zero, err
	}
	if balance.IsNegative() {
		return decimal.Zero, domain.ErrInsufficientFunds
	}
	return balance, nil
}

// positiveAmount 進位到最小貨幣單位後必須仍為正數
func positiveAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	amount = domain.RoundMoney(amount)
	if !amount.IsPositive() {
		return decimal.Zero, domain.ErrInvalidAmount
	}
	return amount, nil
}

// lockOrder 回傳固定順序的帳號，避免兩筆反向轉帳互相等待
func lockOrder(a, b string) []string {
	if a < b {
		return []string{a, b}
	}
	return []string{b, a}
}
