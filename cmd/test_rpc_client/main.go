package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	grpc_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/pkg/grpc"
	"github.com/JoeShih716/go-bank-ledger/pkg/logger"
)

func main() {
	addr := flag.String("addr", "localhost:50051", "ledger service address")
	totalCount := flag.Int("n", 100000, "number of transfers")
	concurrency := flag.Int("c", 200, "concurrent requests")
	accounts := flag.Int("accounts", 10, "number of accounts to shuffle money between")
	flag.Parse()

	log := logger.New("info", true)
	if *accounts < 2 {
		log.Fatal().Int("accounts", *accounts).Msg("need at least two accounts")
	}

	pool := grpc.NewPool(grpc.WithClientLogger(log))
	defer pool.Close()
	conn, err := pool.GetConnection(*addr)
	if err != nil {
		log.Fatal().Err(err).Msg("did not connect")
	}
	c := grpc_adapter.NewClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// 1. 建立測試帳戶，每個帳戶 1000 元
	initial := decimal.NewFromInt(1000)
	numbers := make([]string, 0, *accounts)
	for i := 0; i < *accounts; i++ {
		acc, err := c.CreateAccount(ctx, uuid.NewString(), fmt.Sprintf("load-%d", i), initial)
		if err != nil {
			log.Fatal().Err(err).Msg("create account failed")
		}
		numbers = append(numbers, acc.AccountNumber)
	}
	expected := initial.Mul(decimal.NewFromInt(int64(*accounts)))

	// 2. 併發轉帳
	var (
		wg           sync.WaitGroup
		ok           atomic.Int64
		insufficient atomic.Int64
		contention   atomic.Int64
		failed       atomic.Int64
	)
	sem := make(chan struct{}, *concurrency)
	startTime := time.Now()

	for i := 0; i < *totalCount; i++ {
		sem <- struct{}{}
		wg.Add(1)

		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			r := rand.New(rand.NewSource(int64(idx)))
			fromIdx := r.Intn(len(numbers))
			toIdx := (fromIdx + 1 + r.Intn(len(numbers)-1)) % len(numbers)
			from, to := numbers[fromIdx], numbers[toIdx]
			amount := decimal.New(int64(r.Intn(10000)+1), -2)

			_, err := c.Transfer(ctx, uuid.NewString(), from, to, amount)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrInsufficientFunds):
				insufficient.Add(1)
			case errors.Is(err, domain.ErrContention):
				contention.Add(1)
			default:
				if failed.Add(1)%1000 == 1 {
					log.Warn().Err(err).Int("idx", idx).Msg("transfer failed")
				}
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(startTime)

	// 3. 檢查總額守恆
	total := decimal.Zero
	for _, n := range numbers {
		acc, err := c.GetBalance(ctx, n)
		if err != nil {
			log.Fatal().Err(err).Str("account", n).Msg("get balance failed")
		}
		if acc.Balance.IsNegative() {
			log.Error().Str("account", n).Str("balance", acc.Balance.String()).Msg("negative balance")
		}
		total = total.Add(acc.Balance)
	}

	fmt.Printf("Completed %d requests in %v\n", *totalCount, elapsed)
	fmt.Printf("TPS: %.2f\n", float64(*totalCount)/elapsed.Seconds())
	fmt.Printf("ok=%d insufficient=%d contention=%d failed=%d\n", ok.Load(), insufficient.Load(), contention.Load(), failed.Load())
	if !total.Equal(expected) {
		log.Fatal().Str("total", total.String()).Str("expected", expected.String()).Msg("money not conserved")
	}
	fmt.Printf("Conservation check passed: total=%s\n", total.StringFixed(domain.MinorUnitPlaces))
}

