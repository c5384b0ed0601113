package memory

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/pkg/wal"
)

var errBoom = errors.New("boom")

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := NewStore(opts...)
	if err != nil {
		t.Fatalf("NewStore err=%v", err)
	}
	return s
}

func seedAccount(t *testing.T, s *Store, number, balance string) {
	t.Helper()
	err := s.RunInUnit(context.Background(), func(ctx context.Context, u usecase.Unit) error {
		return u.CreateAccount(ctx, domain.NewAccount(number, "holder", dec(balance), time.Now()))
	})
	if err != nil {
		t.Fatalf("seed %s err=%v", number, err)
	}
}

func balanceOf(t *testing.T, s *Store, number string) decimal.Decimal {
	t.Helper()
	a, err := s.GetAccount(context.Background(), number)
	if err != nil {
		t.Fatalf("GetAccount(%s) err=%v", number, err)
	}
	return a.Balance
}

func TestRunInUnitRollsBackEveryWrite(t *testing.T) {
	s := newStore(t)
	seedAccount(t, s, "A", "100")
	ctx := context.Background()

	err := s.RunInUnit(ctx, func(ctx context.Context, u usecase.Unit) error {
		if _, err := u.NextSequence(ctx, domain.AccountSequenceName); err != nil {
			return err
		}
		if _, err := u.ApplyDelta(ctx, "A", dec("-40")); err != nil {
			return err
		}
		if err := u.AppendEntry(ctx, domain.NewEntry("A", domain.EntryTypeWithdraw, dec("-40"), time.Now())); err != nil {
			return err
		}
		if err := u.CreateLoan(ctx, domain.NewLoan("A", dec("10"), dec("0"), 1, time.Now())); err != nil {
			return err
		}
		if _, err := u.ClaimIdempotencyKey(ctx, "k1", "withdraw"); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("err=%v, want boom", err)
	}

	if got := balanceOf(t, s, "A"); !got.Equal(dec("100")) {
		t.Fatalf("balance=%s, want 100", got)
	}
	if entries, _ := s.ListEntries(ctx, "A"); len(entries) != 0 {
		t.Fatalf("entries=%d, want 0", len(entries))
	}
	if loans, _ := s.ListLoans(ctx, "A"); len(loans) != 0 {
		t.Fatalf("loans=%d, want 0", len(loans))
	}
	if _, ok := s.counters[domain.AccountSequenceName]; ok {
		t.Fatal("counter should be rolled back")
	}
	if _, ok := s.idempotencyKeys["k1"]; ok {
		t.Fatal("idempotency key should be released")
	}
}

func TestApplyDeltaUnknownAccount(t *testing.T) {
	s := newStore(t)
	err := s.RunInUnit(context.Background(), func(ctx context.Context, u usecase.Unit) error {
		_, err := u.ApplyDelta(ctx, "missing", dec("1"))
		return err
	})
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("err=%v, want ErrAccountNotFound", err)
	}
}

func TestNextSequenceStartsAtBase(t *testing.T) {
	s := newStore(t)
	var got []int64
	for i := 0; i < 3; i++ {
		err := s.RunInUnit(context.Background(), func(ctx context.Context, u usecase.Unit) error {
			v, err := u.NextSequence(ctx, domain.AccountSequenceName)
			got = append(got, v)
			return err
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	want := []int64{100001, 100002, 100003}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sequence %v, want %v", got, want)
		}
	}
}

func TestListEntriesNewestFirst(t *testing.T) {
	s := newStore(t)
	seedAccount(t, s, "A", "0")
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	err := s.RunInUnit(context.Background(), func(ctx context.Context, u usecase.Unit) error {
		for i := 0; i < 3; i++ {
			e := domain.NewEntry("A", domain.EntryTypeDeposit, decimal.NewFromInt(int64(i+1)), base.Add(time.Duration(i)*time.Minute))
			if err := u.AppendEntry(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	for round := 0; round < 2; round++ {
		entries, err := s.ListEntries(context.Background(), "A")
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 3 || !entries[0].Amount.Equal(dec("3")) || !entries[2].Amount.Equal(dec("1")) {
			t.Fatalf("round %d: unexpected order %+v", round, entries)
		}
	}
}

func TestGetLoanChecksOwner(t *testing.T) {
	s := newStore(t)
	seedAccount(t, s, "A", "0")
	loan := domain.NewLoan("A", dec("100"), dec("0.1"), 2, time.Now())
	if err := s.RunInUnit(context.Background(), func(ctx context.Context, u usecase.Unit) error {
		return u.CreateLoan(ctx, loan)
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetLoan(context.Background(), loan.ID, "B"); !errors.Is(err, domain.ErrLoanNotFound) {
		t.Fatalf("err=%v, want ErrLoanNotFound", err)
	}
	got, err := s.GetLoan(context.Background(), loan.ID, "A")
	if err != nil || !got.RemainingBalance.Equal(dec("110")) {
		t.Fatalf("GetLoan=%+v err=%v", got, err)
	}
}

func TestAcquireTimeoutReturnsContention(t *testing.T) {
	s := newStore(t, WithAcquireTimeout(20*time.Millisecond))
	hold := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = s.RunInUnit(context.Background(), func(ctx context.Context, u usecase.Unit) error {
			close(started)
			<-hold
			return nil
		})
	}()
	<-started
	defer close(hold)

	err := s.RunInUnit(context.Background(), func(ctx context.Context, u usecase.Unit) error {
		return nil
	})
	if !errors.Is(err, domain.ErrContention) {
		t.Fatalf("err=%v, want ErrContention", err)
	}
}

func TestRecoverFromWAL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, err := wal.NewWAL(path)
	if err != nil {
		t.Fatal(err)
	}
	s := newStore(t, WithWAL(w))
	ctx := context.Background()

	var loan *domain.Loan
	err = s.RunInUnit(ctx, func(ctx context.Context, u usecase.Unit) error {
		seq, err := u.NextSequence(ctx, domain.AccountSequenceName)
		if err != nil {
			return err
		}
		number := domain.FormatAccountNumber(seq)
		if err := u.CreateAccount(ctx, domain.NewAccount(number, "Alice", dec("100"), time.Now())); err != nil {
			return err
		}
		if _, err := u.ApplyDelta(ctx, number, dec("25.50")); err != nil {
			return err
		}
		loan = domain.NewLoan(number, dec("50"), dec("0"), 5, time.Now())
		if err := u.CreateLoan(ctx, loan); err != nil {
			return err
		}
		if _, err := u.ApplyPayment(ctx, loan.ID, dec("50"), time.Now()); err != nil {
			return err
		}
		if _, err := u.ClaimIdempotencyKey(ctx, "req-1", "deposit"); err != nil {
			return err
		}
		return u.AppendEntry(ctx, domain.NewEntry(number, domain.EntryTypeDeposit, dec("25.50"), time.Now()))
	})
	if err != nil {
		t.Fatal(err)
	}
	// 失敗的單元不應出現在 WAL
	_ = s.RunInUnit(ctx, func(ctx context.Context, u usecase.Unit) error {
		if _, err := u.ApplyDelta(ctx, "ACC100001", dec("1000")); err != nil {
			return err
		}
		return errBoom
	})
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	w2, err := wal.NewWAL(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w2.Close()
	restored := newStore(t, WithWAL(w2))

	if got := balanceOf(t, restored, "ACC100001"); !got.Equal(dec("125.50")) {
		t.Fatalf("balance=%s, want 125.50", got)
	}
	l, err := restored.GetLoan(ctx, loan.ID, "ACC100001")
	if err != nil || !l.IsPaid() || !l.RemainingBalance.IsZero() {
		t.Fatalf("loan=%+v err=%v", l, err)
	}
	if entries, _ := restored.ListEntries(ctx, "ACC100001"); len(entries) != 1 {
		t.Fatalf("entries=%d, want 1", len(entries))
	}

	// 序號在重啟後延續，不重複
	var next int64
	err = restored.RunInUnit(ctx, func(ctx context.Context, u usecase.Unit) error {
		claimed, err := u.ClaimIdempotencyKey(ctx, "req-1", "deposit")
		if err != nil {
			return err
		}
		if !claimed {
			t.Error("idempotency key should survive restart")
		}
		next, err = u.NextSequence(ctx, domain.AccountSequenceName)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if next != 100002 {
		t.Fatalf("next sequence=%d, want 100002", next)
	}
}
