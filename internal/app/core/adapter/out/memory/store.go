package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/pkg/wal"
)

const defaultAcquireTimeout = 2 * time.Second

// Store 是一個使用 Mutex 實現的帳本儲存
//
// 結構:
//
//	mu: 保護所有資料；寫入單元整段持有寫鎖，讀取使用讀鎖，所以讀取端看不到半套用的狀態
//	writer: 容量 1 的號誌，寫入者在 acquireTimeout 內拿不到就回傳 ErrContention
//	wal: Write-Ahead Log，每個成功的單元寫入一筆紀錄，啟動時重放
type Store struct {
	mu             sync.RWMutex
	writer         chan struct{}
	acquireTimeout time.Duration

	counters        map[string]int64
	accounts        map[string]*domain.Account
	accountOrder    []string
	entries         map[string][]domain.Entry
	loans           map[string]*domain.Loan
	loansByAccount  map[string][]string
	idempotencyKeys map[string]string

	// 已提交的單元數，也是 WAL 紀錄的序號
	sequence uint64
	wal      *wal.WAL
	now      func() time.Time
}

// Option 定義了 Store 的配置選項函數
type Option func(*Store)

// WithWAL 啟用 WAL；NewStore 會先從 WAL 恢復狀態
func WithWAL(w *wal.WAL) Option {
	return func(s *Store) {
		s.wal = w
	}
}

// WithAcquireTimeout 設定取得寫入權的最長等待時間
func WithAcquireTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.acquireTimeout = d
		}
	}
}

// NewStore 建立一個新的 Store 實例
//
// 回傳:
//
//	*Store: Store 實例
//	error: 初始化錯誤 (如 WAL 恢復失敗)
func NewStore(opts ...Option) (*Store, error) {
	s := &Store{
		writer:          make(chan struct{}, 1),
		acquireTimeout:  defaultAcquireTimeout,
		counters:        make(map[string]int64),
		accounts:        make(map[string]*domain.Account),
		entries:         make(map[string][]domain.Entry),
		loans:           make(map[string]*domain.Loan),
		loansByAccount:  make(map[string][]string),
		idempotencyKeys: make(map[string]string),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.wal != nil {
		if err := s.recoverFromWAL(); err != nil {
			return nil, fmt.Errorf("recover from wal: %w", err)
		}
	}
	return s, nil
}

// recoverFromWAL 從 WAL 檔案恢復帳本狀態
// 只有 NewStore 呼叫，無需 Lock (單執行緒)
func (s *Store) recoverFromWAL() error {
	return s.wal.ReadAll(func(jsonRaw []byte) error {
		var rec walRecord
		if err := json.Unmarshal(jsonRaw, &rec); err != nil {
			return err
		}
		if rec.Sequence <= s.sequence {
			return nil
		}
		for _, op := range rec.Ops {
			if _, err := s.apply(op); err != nil {
				return fmt.Errorf("replay record %d: %w", rec.Sequence, err)
			}
		}
		s.sequence = rec.Sequence
		return nil
	})
}

// RunInUnit 以單一原子單元執行 fn
//
// fn 執行期間持有寫鎖；fn 失敗或 WAL 寫入失敗時，依相反順序執行 undo。
func (s *Store) RunInUnit(ctx context.Context, fn func(ctx context.Context, unit usecase.Unit) error) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	s.mu.Lock()
	defer s.mu.Unlock()

	u := &unit{store: s}
	if err := fn(ctx, u); err != nil {
		u.rollback()
		return err
	}
	if len(u.ops) == 0 {
		return nil
	}

	// 1. 寫入 WAL (Critical Path)
	if s.wal != nil {
		rec := walRecord{
			Sequence:    s.sequence + 1,
			CommittedAt: s.now().UnixNano(),
			Ops:         u.ops,
		}
		if err := s.wal.Write(rec); err != nil {
			u.rollback()
			return fmt.Errorf("%w: wal write: %v", domain.ErrStorageUnavailable, err)
		}
	}
	s.sequence++
	return nil
}

func (s *Store) acquire(ctx context.Context) error {
	timer := time.NewTimer(s.acquireTimeout)
	defer timer.Stop()
	select {
	case s.writer <- struct{}{}:
		return nil
	case <-timer.C:
		return domain.ErrContention
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release() {
	<-s.writer
}

// GetAccount 取得帳戶快照
func (s *Store) GetAccount(ctx context.Context, number string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account(number)
}

// ListAccountNumbers 依開戶順序列出所有帳號
func (s *Store) ListAccountNumbers(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.accountOrder))
	copy(out, s.accountOrder)
	return out, nil
}

// ListEntries 依時間由新到舊列出交易紀錄
func (s *Store) ListEntries(ctx context.Context, number string) ([]domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.entries[number]
	out := make([]domain.Entry, len(list))
	for i := range list {
		out[len(list)-1-i] = list[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// GetLoan 取得屬於該帳戶的貸款
func (s *Store) GetLoan(ctx context.Context, loanID, number string) (*domain.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loan(loanID, number)
}

// ListLoans 依建立順序列出帳戶的貸款
func (s *Store) ListLoans(ctx context.Context, number string) ([]domain.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.loansByAccount[number]
	out := make([]domain.Loan, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.loans[id])
	}
	return out, nil
}

// account 回傳值拷貝，呼叫端需持有鎖
func (s *Store) account(number string) (*domain.Account, error) {
	a, ok := s.accounts[number]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Store) loan(loanID, number string) (*domain.Loan, error) {
	l, ok := s.loans[loanID]
	if !ok || l.AccountNumber != number {
		return nil, domain.ErrLoanNotFound
	}
	cp := *l
	return &cp, nil
}

var _ usecase.Store = (*Store)(nil)
