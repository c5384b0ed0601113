package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	grpc_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

const menuText = `
===== BANK SYSTEM MENU =====
1. Create Account
2. Deposit
3. Withdraw
4. Check Balance
5. Transfer
6. Transaction History
7. Apply Interest
8. Apply for Loan
9. Repay Loan
10. View Loans
11. Exit
============================`

const timeLayout = "2006-01-02 15:04:05"

// menu 互動式選單；每個寫入請求都帶一個新的 UUID 作為 ref_id
type menu struct {
	client  *grpc_adapter.Client
	in      *bufio.Scanner
	out     io.Writer
	timeout time.Duration
}

func newMenu(client *grpc_adapter.Client, in io.Reader, out io.Writer, timeout time.Duration) *menu {
	return &menu{
		client:  client,
		in:      bufio.NewScanner(in),
		out:     out,
		timeout: timeout,
	}
}

// errInputClosed 輸入結束 (EOF)
var errInputClosed = errors.New("input closed")

func (m *menu) run() {
	for {
		fmt.Fprintln(m.out, menuText)
		choice, err := m.prompt("Enter your choice (1-11): ")
		if err != nil {
			return
		}
		if choice == "11" {
			fmt.Fprintln(m.out, "Exiting. Thank you for using the bank system!")
			return
		}
		if err := m.dispatch(choice); err != nil {
			if errors.Is(err, errInputClosed) {
				return
			}
			fmt.Fprintf(m.out, "Error: %s\n", describe(err))
		}
	}
}

func (m *menu) dispatch(choice string) error {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	switch choice {
	case "1":
		return m.createAccount(ctx)
	case "2":
		return m.deposit(ctx)
	case "3":
		return m.withdraw(ctx)
	case "4":
		return m.checkBalance(ctx)
	case "5":
		return m.transfer(ctx)
	case "6":
		return m.history(ctx)
	case "7":
		return m.applyInterest(ctx)
	case "8":
		return m.applyLoan(ctx)
	case "9":
		return m.repayLoan(ctx)
	case "10":
		return m.viewLoans(ctx)
	default:
		fmt.Fprintln(m.out, "Invalid choice. Please try again.")
		return nil
	}
}

func (m *menu) createAccount(ctx context.Context) error {
	name, err := m.prompt("Account Holder Name: ")
	if err != nil {
		return err
	}
	bal, err := m.promptDecimal("Initial Balance: ")
	if err != nil {
		return err
	}
	acc, err := m.client.CreateAccount(ctx, uuid.NewString(), name, bal)
	if err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Account created. Account Number: %s\n", acc.AccountNumber)
	return nil
}

func (m *menu) deposit(ctx context.Context) error {
	acc, err := m.prompt("Account Number: ")
	if err != nil {
		return err
	}
	amt, err := m.promptDecimal("Deposit Amount: ")
	if err != nil {
		return err
	}
	res, err := m.client.Deposit(ctx, uuid.NewString(), acc, amt)
	if err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Deposited %s. New Balance: %s\n", money(amt), money(res.Balance))
	return nil
}

func (m *menu) withdraw(ctx context.Context) error {
	acc, err := m.prompt("Account Number: ")
	if err != nil {
		return err
	}
	amt, err := m.promptDecimal("Withdrawal Amount: ")
	if err != nil {
		return err
	}
	res, err := m.client.Withdraw(ctx, uuid.NewString(), acc, amt)
	if err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Withdrew %s. New Balance: %s\n", money(amt), money(res.Balance))
	return nil
}

func (m *menu) checkBalance(ctx context.Context) error {
	acc, err := m.prompt("Account Number: ")
	if err != nil {
		return err
	}
	res, err := m.client.GetBalance(ctx, acc)
	if err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Account Holder: %s\nBalance: %s\n", res.HolderName, money(res.Balance))
	return nil
}

func (m *menu) transfer(ctx context.Context) error {
	from, err := m.prompt("From Account: ")
	if err != nil {
		return err
	}
	to, err := m.prompt("To Account: ")
	if err != nil {
		return err
	}
	amt, err := m.promptDecimal("Amount to Transfer: ")
	if err != nil {
		return err
	}
	if _, err := m.client.Transfer(ctx, uuid.NewString(), from, to, amt); err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Transferred %s from %s to %s\n", money(amt), from, to)
	return nil
}

func (m *menu) history(ctx context.Context) error {
	acc, err := m.prompt("Account Number: ")
	if err != nil {
		return err
	}
	entries, err := m.client.ListTransactions(ctx, acc)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(m.out, "No transactions found.")
		return nil
	}
	fmt.Fprintf(m.out, "Transaction History for %s:\n", acc)
	for _, e := range entries {
		line := fmt.Sprintf("%s | %s | %s", e.Timestamp.Local().Format(timeLayout), e.Type, money(e.Amount))
		if e.RelatedAccount != "" {
			line += " | " + e.RelatedAccount
		}
		if e.RelatedLoanID != "" {
			line += " | loan " + e.RelatedLoanID
		}
		fmt.Fprintln(m.out, line)
	}
	return nil
}

func (m *menu) applyInterest(ctx context.Context) error {
	acc, err := m.prompt("Account Number (leave blank for all): ")
	if err != nil {
		return err
	}
	rate, err := m.promptDecimal("Interest Rate (e.g., 0.02): ")
	if err != nil {
		return err
	}
	results, err := m.client.ApplyInterest(ctx, acc, rate)
	if err != nil {
		return err
	}
	for _, r := range results {
		switch {
		case r.Error != "":
			fmt.Fprintf(m.out, "%s: not applied (%s)\n", r.AccountNumber, r.Error)
		case r.Skipped:
			fmt.Fprintf(m.out, "%s: no interest\n", r.AccountNumber)
		default:
			fmt.Fprintf(m.out, "%s: interest %s, new balance %s\n", r.AccountNumber, money(r.Interest), money(r.Balance))
		}
	}
	if acc == "" {
		fmt.Fprintf(m.out, "Interest applied to %d accounts.\n", len(results))
	}
	return nil
}

func (m *menu) applyLoan(ctx context.Context) error {
	acc, err := m.prompt("Account Number: ")
	if err != nil {
		return err
	}
	amt, err := m.promptDecimal("Loan Amount: ")
	if err != nil {
		return err
	}
	rate, err := m.promptDecimal("Interest Rate (e.g., 0.05): ")
	if err != nil {
		return err
	}
	months, err := m.promptInt("Duration in Months: ")
	if err != nil {
		return err
	}
	loan, err := m.client.ApplyLoan(ctx, uuid.NewString(), acc, amt, rate, months)
	if err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Loan approved. Loan ID: %s\nTotal Payable: %s | Monthly Payment: %s\n",
		loan.LoanID, money(loan.TotalPayable), money(loan.MonthlyPayment))
	return nil
}

func (m *menu) repayLoan(ctx context.Context) error {
	acc, err := m.prompt("Account Number: ")
	if err != nil {
		return err
	}
	loanID, err := m.prompt("Loan ID: ")
	if err != nil {
		return err
	}
	payment, err := m.promptDecimal("Payment Amount: ")
	if err != nil {
		return err
	}
	res, err := m.client.RepayLoan(ctx, uuid.NewString(), acc, loanID, payment)
	if err != nil {
		return err
	}
	if res.AlreadyPaid {
		fmt.Fprintln(m.out, "Loan already fully paid.")
		return nil
	}
	fmt.Fprintf(m.out, "Repaid %s. Remaining Loan Balance: %s\n", money(res.Applied), money(res.Loan.RemainingBalance))
	if res.Loan.Status == string(domain.LoanStatusPaid) {
		fmt.Fprintln(m.out, "Loan fully repaid.")
	}
	return nil
}

func (m *menu) viewLoans(ctx context.Context) error {
	acc, err := m.prompt("Account Number: ")
	if err != nil {
		return err
	}
	loans, err := m.client.ListLoans(ctx, acc)
	if err != nil {
		return err
	}
	if len(loans) == 0 {
		fmt.Fprintln(m.out, "No loans found.")
		return nil
	}
	for _, l := range loans {
		fmt.Fprintf(m.out, "Loan ID: %s | Principal: %s | Remaining: %s | Monthly: %s | Status: %s\n",
			l.LoanID, money(l.Principal), money(l.RemainingBalance), money(l.MonthlyPayment), l.Status)
	}
	return nil
}

func (m *menu) prompt(label string) (string, error) {
	fmt.Fprint(m.out, label)
	if !m.in.Scan() {
		return "", errInputClosed
	}
	return strings.TrimSpace(m.in.Text()), nil
}

func (m *menu) promptDecimal(label string) (decimal.Decimal, error) {
	s, err := m.prompt(label)
	if err != nil {
		return decimal.Zero, err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q is not a number", s)
	}
	return d, nil
}

func (m *menu) promptInt(label string) (int, error) {
	s, err := m.prompt(label)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}
	return n, nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(domain.MinorUnitPlaces)
}

// describe 將 domain 錯誤轉成使用者看得懂的訊息
func describe(err error) string {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return "account not found"
	case errors.Is(err, domain.ErrLoanNotFound):
		return "loan not found"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient funds"
	case errors.Is(err, domain.ErrInvalidAmount):
		return "amount must be positive"
	case errors.Is(err, domain.ErrInvalidDuration):
		return "duration must be at least one month"
	case errors.Is(err, domain.ErrSameAccount):
		return "cannot transfer to the same account"
	case errors.Is(err, domain.ErrContention):
		return "the ledger is busy, please retry"
	case errors.Is(err, domain.ErrStorageUnavailable):
		return "the ledger is unavailable"
	}
	return err.Error()
}
