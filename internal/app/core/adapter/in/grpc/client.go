package grpc

import (
	"context"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"

	pkggrpc "github.com/JoeShih716/go-bank-ledger/pkg/grpc"
)

// Client LedgerService 的 client 端；錯誤會還原成 domain sentinel，可用 errors.Is 判斷
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	err := c.conn.Invoke(ctx, fullMethod(method), req, resp, grpc.CallContentSubtype(pkggrpc.JSONCodecName))
	return fromStatus(err)
}

func (c *Client) CreateAccount(ctx context.Context, refID, holderName string, initialBalance decimal.Decimal) (*AccountResponse, error) {
	resp := new(AccountResponse)
	req := &CreateAccountRequest{RefID: refID, HolderName: holderName, InitialBalance: initialBalance}
	if err := c.invoke(ctx, MethodCreateAccount, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) Deposit(ctx context.Context, refID, accountNumber string, amount decimal.Decimal) (*AccountResponse, error) {
	resp := new(AccountResponse)
	req := &AmountRequest{RefID: refID, AccountNumber: accountNumber, Amount: amount}
	if err := c.invoke(ctx, MethodDeposit, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) Withdraw(ctx context.Context, refID, accountNumber string, amount decimal.Decimal) (*AccountResponse, error) {
	resp := new(AccountResponse)
	req := &AmountRequest{RefID: refID, AccountNumber: accountNumber, Amount: amount}
	if err := c.invoke(ctx, MethodWithdraw, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) Transfer(ctx context.Context, refID, from, to string, amount decimal.Decimal) (*TransferResponse, error) {
	resp := new(TransferResponse)
	req := &TransferRequest{RefID: refID, FromAccount: from, ToAccount: to, Amount: amount}
	if err := c.invoke(ctx, MethodTransfer, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) GetBalance(ctx context.Context, accountNumber string) (*AccountResponse, error) {
	resp := new(AccountResponse)
	if err := c.invoke(ctx, MethodGetBalance, &AccountRequest{AccountNumber: accountNumber}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) ListTransactions(ctx context.Context, accountNumber string) ([]EntryMessage, error) {
	resp := new(ListTransactionsResponse)
	if err := c.invoke(ctx, MethodListTransactions, &AccountRequest{AccountNumber: accountNumber}, resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// ApplyInterest accountNumber 為空字串時對所有帳戶計息
func (c *Client) ApplyInterest(ctx context.Context, accountNumber string, rate decimal.Decimal) ([]InterestResultMessage, error) {
	req := &ApplyInterestRequest{AccountNumber: accountNumber, All: accountNumber == "", Rate: rate}
	resp := new(ApplyInterestResponse)
	if err := c.invoke(ctx, MethodApplyInterest, req, resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (c *Client) ApplyLoan(ctx context.Context, refID, accountNumber string, principal, rate decimal.Decimal, months int) (*LoanMessage, error) {
	req := &ApplyLoanRequest{
		RefID:          refID,
		AccountNumber:  accountNumber,
		Principal:      principal,
		InterestRate:   rate,
		DurationMonths: months,
	}
	resp := new(LoanMessage)
	if err := c.invoke(ctx, MethodApplyLoan, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) RepayLoan(ctx context.Context, refID, accountNumber, loanID string, payment decimal.Decimal) (*RepayLoanResponse, error) {
	req := &RepayLoanRequest{RefID: refID, AccountNumber: accountNumber, LoanID: loanID, Payment: payment}
	resp := new(RepayLoanResponse)
	if err := c.invoke(ctx, MethodRepayLoan, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) ListLoans(ctx context.Context, accountNumber string) ([]LoanMessage, error) {
	resp := new(ListLoansResponse)
	if err := c.invoke(ctx, MethodListLoans, &AccountRequest{AccountNumber: accountNumber}, resp); err != nil {
		return nil, err
	}
	return resp.Loans, nil
}
