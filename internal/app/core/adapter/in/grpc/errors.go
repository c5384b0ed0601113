package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// errorCodes domain 錯誤與 gRPC 狀態碼的對應；訊息固定為 sentinel 的文字，讓 client 可以還原
var errorCodes = []struct {
	err  error
	code codes.Code
}{
	{domain.ErrInvalidAmount, codes.InvalidArgument},
	{domain.ErrInvalidDuration, codes.InvalidArgument},
	{domain.ErrSameAccount, codes.InvalidArgument},
	{domain.ErrAccountNotFound, codes.NotFound},
	{domain.ErrLoanNotFound, codes.NotFound},
	{domain.ErrInsufficientFunds, codes.FailedPrecondition},
	{domain.ErrIneligible, codes.FailedPrecondition},
	{domain.ErrRequestAlreadyProcessed, codes.AlreadyExists},
	{domain.ErrAccountAlreadyExists, codes.AlreadyExists},
	{domain.ErrContention, codes.Aborted},
	{domain.ErrStorageUnavailable, codes.Unavailable},
}

// toStatus 將 domain 錯誤轉為 gRPC status
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return status.Error(ec.code, ec.err.Error())
		}
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// fromStatus 將 gRPC status 還原成 domain 錯誤，無法對應時原樣回傳
func fromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, ec := range errorCodes {
		if st.Code() == ec.code && st.Message() == ec.err.Error() {
			return ec.err
		}
	}
	return err
}
