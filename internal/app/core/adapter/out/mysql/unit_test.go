package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/pkg/mysql"
)

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// newMockDB 以 sqlmock 取代真實的 MySQL 連線
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New err=%v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
	})
	if err != nil {
		t.Fatalf("gorm.Open err=%v", err)
	}
	return db, mock
}

func newMockUnit(t *testing.T) (*unit, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	return &unit{tx: db, now: func() time.Time { return fixedNow }}, mock
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUnitNextSequence(t *testing.T) {
	t.Run("increments then reads", func(t *testing.T) {
		u, mock := newMockUnit(t)
		mock.ExpectExec("UPDATE `counters` SET").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT \\* FROM `counters`").
			WillReturnRows(sqlmock.NewRows([]string{"name", "value"}).AddRow(domain.AccountSequenceName, 100007))

		got, err := u.NextSequence(context.Background(), domain.AccountSequenceName)
		if err != nil {
			t.Fatal(err)
		}
		if got != 100007 {
			t.Fatalf("seq=%d, want 100007", got)
		}
		expectationsMet(t, mock)
	})

	t.Run("creates the first value when the row is missing", func(t *testing.T) {
		u, mock := newMockUnit(t)
		mock.ExpectExec("UPDATE `counters` SET").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO `counters`").WillReturnResult(sqlmock.NewResult(0, 1))

		got, err := u.NextSequence(context.Background(), domain.AccountSequenceName)
		if err != nil {
			t.Fatal(err)
		}
		if got != domain.AccountSequenceBase+1 {
			t.Fatalf("seq=%d, want %d", got, domain.AccountSequenceBase+1)
		}
		expectationsMet(t, mock)
	})
}

func TestUnitApplyDelta(t *testing.T) {
	t.Run("returns the new balance", func(t *testing.T) {
		u, mock := newMockUnit(t)
		mock.ExpectExec("UPDATE `accounts` SET .*balance \\+ CAST").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT .*balance.* FROM `accounts`").
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("150.25"))

		got, err := u.ApplyDelta(context.Background(), "ACC100001", decimal.RequireFromString("50.25"))
		if err != nil {
			t.Fatal(err)
		}
		if !got.Equal(decimal.RequireFromString("150.25")) {
			t.Fatalf("balance=%s, want 150.25", got)
		}
		expectationsMet(t, mock)
	})

	t.Run("unknown account", func(t *testing.T) {
		u, mock := newMockUnit(t)
		mock.ExpectExec("UPDATE `accounts` SET").WillReturnResult(sqlmock.NewResult(0, 0))

		if _, err := u.ApplyDelta(context.Background(), "ACC999999", decimal.NewFromInt(1)); !errors.Is(err, domain.ErrAccountNotFound) {
			t.Fatalf("err=%v, want ErrAccountNotFound", err)
		}
		expectationsMet(t, mock)
	})

	t.Run("deadlock is contention", func(t *testing.T) {
		u, mock := newMockUnit(t)
		mock.ExpectExec("UPDATE `accounts` SET").WillReturnError(&mysqldriver.MySQLError{Number: 1213, Message: "Deadlock found"})

		if _, err := u.ApplyDelta(context.Background(), "ACC100001", decimal.NewFromInt(-1)); !errors.Is(err, domain.ErrContention) {
			t.Fatalf("err=%v, want ErrContention", err)
		}
		expectationsMet(t, mock)
	})
}

func TestUnitClaimIdempotencyKey(t *testing.T) {
	u, mock := newMockUnit(t)
	mock.ExpectExec("INSERT INTO `idempotency_keys`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `idempotency_keys`").WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	claimed, err := u.ClaimIdempotencyKey(ctx, "key-1", usecase.OpDeposit)
	if err != nil || claimed {
		t.Fatalf("first claim: claimed=%v err=%v, want false nil", claimed, err)
	}
	claimed, err = u.ClaimIdempotencyKey(ctx, "key-1", usecase.OpDeposit)
	if err != nil || !claimed {
		t.Fatalf("duplicate claim: claimed=%v err=%v, want true nil", claimed, err)
	}
	expectationsMet(t, mock)
}

func TestRunInUnitErrors(t *testing.T) {
	errNotEligible := errors.New("account frozen")

	tests := []struct {
		name   string
		expect func(sqlmock.Sqlmock)
		fn     func(ctx context.Context, u usecase.Unit) error
		want   error
		reject error
	}{
		{
			name: "callback error passes through",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectRollback()
			},
			fn: func(ctx context.Context, u usecase.Unit) error {
				return errNotEligible
			},
			want:   errNotEligible,
			reject: domain.ErrStorageUnavailable,
		},
		{
			name: "deadlock inside the unit",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectExec("UPDATE `accounts` SET").WillReturnError(&mysqldriver.MySQLError{Number: 1213})
				m.ExpectRollback()
			},
			fn: func(ctx context.Context, u usecase.Unit) error {
				_, err := u.ApplyDelta(ctx, "ACC100001", decimal.NewFromInt(5))
				return err
			},
			want: domain.ErrContention,
		},
		{
			name: "commit failure",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectCommit().WillReturnError(errors.New("connection reset"))
			},
			fn: func(ctx context.Context, u usecase.Unit) error {
				return nil
			},
			want: domain.ErrStorageUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			tt.expect(mock)
			store := NewMySQLStore(mysql.NewClientWithDB(db))

			err := store.RunInUnit(context.Background(), tt.fn)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err=%v, want %v", err, tt.want)
			}
			if tt.reject != nil && errors.Is(err, tt.reject) {
				t.Fatalf("err=%v should not be %v", err, tt.reject)
			}
			expectationsMet(t, mock)
		})
	}
}
