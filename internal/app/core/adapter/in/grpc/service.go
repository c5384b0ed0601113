package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName 完整的 gRPC 服務名稱
const ServiceName = "bankledger.v1.LedgerService"

// 方法名稱
const (
	MethodCreateAccount    = "CreateAccount"
	MethodDeposit          = "Deposit"
	MethodWithdraw         = "Withdraw"
	MethodTransfer         = "Transfer"
	MethodGetBalance       = "GetBalance"
	MethodListTransactions = "ListTransactions"
	MethodApplyInterest    = "ApplyInterest"
	MethodApplyLoan        = "ApplyLoan"
	MethodRepayLoan        = "RepayLoan"
	MethodListLoans        = "ListLoans"
)

// LedgerServiceServer 帳務服務的 server 端介面，每個方法對應一個 LedgerEngine 操作
type LedgerServiceServer interface {
	CreateAccount(context.Context, *CreateAccountRequest) (*AccountResponse, error)
	Deposit(context.Context, *AmountRequest) (*AccountResponse, error)
	Withdraw(context.Context, *AmountRequest) (*AccountResponse, error)
	Transfer(context.Context, *TransferRequest) (*TransferResponse, error)
	GetBalance(context.Context, *AccountRequest) (*AccountResponse, error)
	ListTransactions(context.Context, *AccountRequest) (*ListTransactionsResponse, error)
	ApplyInterest(context.Context, *ApplyInterestRequest) (*ApplyInterestResponse, error)
	ApplyLoan(context.Context, *ApplyLoanRequest) (*LoanMessage, error)
	RepayLoan(context.Context, *RepayLoanRequest) (*RepayLoanResponse, error)
	ListLoans(context.Context, *AccountRequest) (*ListLoansResponse, error)
}

// LedgerServiceDesc 手動註冊的 ServiceDesc，訊息由 JSON codec 編碼
var LedgerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(MethodCreateAccount, LedgerServiceServer.CreateAccount),
		unaryMethod(MethodDeposit, LedgerServiceServer.Deposit),
		unaryMethod(MethodWithdraw, LedgerServiceServer.Withdraw),
		unaryMethod(MethodTransfer, LedgerServiceServer.Transfer),
		unaryMethod(MethodGetBalance, LedgerServiceServer.GetBalance),
		unaryMethod(MethodListTransactions, LedgerServiceServer.ListTransactions),
		unaryMethod(MethodApplyInterest, LedgerServiceServer.ApplyInterest),
		unaryMethod(MethodApplyLoan, LedgerServiceServer.ApplyLoan),
		unaryMethod(MethodRepayLoan, LedgerServiceServer.RepayLoan),
		unaryMethod(MethodListLoans, LedgerServiceServer.ListLoans),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bankledger/v1/ledger",
}

// RegisterLedgerServiceServer 將服務註冊到 grpc.Server
func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&LedgerServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unaryMethod 以泛型產生 MethodDesc，取代 protoc 產生的 _Handler 函式
func unaryMethod[Req, Resp any](name string, call func(LedgerServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(LedgerServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod(name),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(LedgerServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
