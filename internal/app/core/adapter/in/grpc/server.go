package grpc

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

// GrpcServer 將 gRPC 請求轉給 LedgerEngine (Driving Adapter)
type GrpcServer struct {
	core *usecase.LedgerEngine
}

func NewGrpcServer(core *usecase.LedgerEngine) *GrpcServer {
	return &GrpcServer{
		core: core,
	}
}

// writeOptions 將 ref_id 轉成冪等鍵；ref_id 必須是 UUID
func writeOptions(refID string) ([]usecase.WriteOption, error) {
	if refID == "" {
		return nil, nil
	}
	u, err := uuid.Parse(refID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid ref_id: "+err.Error())
	}
	return []usecase.WriteOption{usecase.WithIdempotencyKey(u.String())}, nil
}

func (s *GrpcServer) CreateAccount(ctx context.Context, req *CreateAccountRequest) (*AccountResponse, error) {
	opts, err := writeOptions(req.RefID)
	if err != nil {
		return nil, err
	}
	acc, err := s.core.CreateAccount(ctx, req.HolderName, req.InitialBalance, opts...)
	if err != nil {
		return nil, toStatus(err)
	}
	return toAccountResponse(acc), nil
}

func (s *GrpcServer) Deposit(ctx context.Context, req *AmountRequest) (*AccountResponse, error) {
	opts, err := writeOptions(req.RefID)
	if err != nil {
		return nil, err
	}
	acc, err := s.core.Deposit(ctx, req.AccountNumber, req.Amount, opts...)
	if err != nil {
		return nil, toStatus(err)
	}
	return toAccountResponse(acc), nil
}

func (s *GrpcServer) Withdraw(ctx context.Context, req *AmountRequest) (*AccountResponse, error) {
	opts, err := writeOptions(req.RefID)
	if err != nil {
		return nil, err
	}
	acc, err := s.core.Withdraw(ctx, req.AccountNumber, req.Amount, opts...)
	if err != nil {
		return nil, toStatus(err)
	}
	return toAccountResponse(acc), nil
}

func (s *GrpcServer) Transfer(ctx context.Context, req *TransferRequest) (*TransferResponse, error) {
	opts, err := writeOptions(req.RefID)
	if err != nil {
		return nil, err
	}
	res, err := s.core.Transfer(ctx, req.FromAccount, req.ToAccount, req.Amount, opts...)
	if err != nil {
		return nil, toStatus(err)
	}
	return &TransferResponse{
		From: *toAccountResponse(res.From),
		To:   *toAccountResponse(res.To),
	}, nil
}

func (s *GrpcServer) GetBalance(ctx context.Context, req *AccountRequest) (*AccountResponse, error) {
	acc, err := s.core.CheckBalance(ctx, req.AccountNumber)
	if err != nil {
		return nil, toStatus(err)
	}
	return toAccountResponse(acc), nil
}

func (s *GrpcServer) ListTransactions(ctx context.Context, req *AccountRequest) (*ListTransactionsResponse, error) {
	list, err := s.core.ShowTransactions(ctx, req.AccountNumber)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &ListTransactionsResponse{Entries: make([]EntryMessage, 0, len(list))}
	for _, e := range list {
		resp.Entries = append(resp.Entries, toEntryMessage(e))
	}
	return resp, nil
}

func (s *GrpcServer) ApplyInterest(ctx context.Context, req *ApplyInterestRequest) (*ApplyInterestResponse, error) {
	var target domain.InterestTarget
	switch {
	case req.All && req.AccountNumber == "":
		target = domain.AllAccounts()
	case !req.All && req.AccountNumber != "":
		target = domain.SingleAccount(req.AccountNumber)
	default:
		return nil, status.Error(codes.InvalidArgument, "exactly one of all or account_number must be set")
	}
	results, err := s.core.ApplyInterest(ctx, target, req.Rate)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &ApplyInterestResponse{Results: make([]InterestResultMessage, 0, len(results))}
	for _, r := range results {
		resp.Results = append(resp.Results, toInterestResultMessage(r))
	}
	return resp, nil
}

func (s *GrpcServer) ApplyLoan(ctx context.Context, req *ApplyLoanRequest) (*LoanMessage, error) {
	opts, err := writeOptions(req.RefID)
	if err != nil {
		return nil, err
	}
	loan, err := s.core.ApplyLoan(ctx, req.AccountNumber, req.Principal, req.InterestRate, req.DurationMonths, opts...)
	if err != nil {
		return nil, toStatus(err)
	}
	msg := toLoanMessage(loan)
	return &msg, nil
}

func (s *GrpcServer) RepayLoan(ctx context.Context, req *RepayLoanRequest) (*RepayLoanResponse, error) {
	opts, err := writeOptions(req.RefID)
	if err != nil {
		return nil, err
	}
	res, err := s.core.RepayLoan(ctx, req.AccountNumber, req.LoanID, req.Payment, opts...)
	if err != nil {
		return nil, toStatus(err)
	}
	return &RepayLoanResponse{
		Loan:        toLoanMessage(res.Loan),
		Balance:     res.Balance,
		Applied:     res.Applied,
		AlreadyPaid: res.AlreadyPaid,
	}, nil
}

func (s *GrpcServer) ListLoans(ctx context.Context, req *AccountRequest) (*ListLoansResponse, error) {
	loans, err := s.core.ViewLoans(ctx, req.AccountNumber)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &ListLoansResponse{Loans: make([]LoanMessage, 0, len(loans))}
	for i := range loans {
		resp.Loans = append(resp.Loans, toLoanMessage(&loans[i]))
	}
	return resp, nil
}

var _ LedgerServiceServer = (*GrpcServer)(nil)
