package mysql

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

var errDriverBroken = errors.New("driver: bad connection")

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"business error passes through", domain.ErrInsufficientFunds, domain.ErrInsufficientFunds},
		{"wrapped business error", fmt.Errorf("x: %w", domain.ErrLoanNotFound), domain.ErrLoanNotFound},
		{"deadlock", &mysqldriver.MySQLError{Number: 1213, Message: "Deadlock found"}, domain.ErrContention},
		{"lock wait timeout", fmt.Errorf("exec: %w", &mysqldriver.MySQLError{Number: 1205}), domain.ErrContention},
		{"duplicate key", &mysqldriver.MySQLError{Number: 1062}, domain.ErrStorageUnavailable},
		{"connection refused", errors.New("dial tcp: connection refused"), domain.ErrStorageUnavailable},
		{"context canceled", context.Canceled, context.Canceled},
		{"storage error keeps its chain", fmt.Errorf("exec: %w", errDriverBroken), errDriverBroken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.in)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("got %v, want nil", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMapErrorKeepsCause(t *testing.T) {
	err := mapError(fmt.Errorf("exec: %w", errDriverBroken))
	if !errors.Is(err, domain.ErrStorageUnavailable) || !errors.Is(err, errDriverBroken) {
		t.Fatalf("err=%v, want both ErrStorageUnavailable and the driver error", err)
	}
	var myErr *mysqldriver.MySQLError
	if err := mapError(&mysqldriver.MySQLError{Number: 1205}); !errors.As(err, &myErr) || !errors.Is(err, domain.ErrContention) {
		t.Fatalf("err=%v, want ErrContention wrapping the MySQLError", err)
	}
}

func TestEntryRowKeepsRefID(t *testing.T) {
	e := domain.NewEntry("ACC100001", domain.EntryTypeTransferOut, decimal.RequireFromString("-12.345"), time.Now().UTC()).
		WithRelatedAccount("ACC100002")
	row := entryFromDomain(e)
	if len(row.RefID) != 16 || !row.Amount.Equal(decimal.RequireFromString("-12.35")) {
		t.Fatalf("unexpected row %+v", row)
	}
	back := row.toDomain()
	if back.ID != e.ID || back.RelatedAccount != "ACC100002" || back.Type != domain.EntryTypeTransferOut {
		t.Fatalf("unexpected entry %+v", back)
	}
}
