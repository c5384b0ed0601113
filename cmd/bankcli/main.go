package main

import (
	"flag"
	"os"
	"time"

	"github.com/JoeShih716/go-bank-ledger/pkg/grpc"
	"github.com/JoeShih716/go-bank-ledger/pkg/logger"

	grpc_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/in/grpc"
)

func main() {
	addr := flag.String("addr", "localhost:50051", "ledger service address")
	timeout := flag.Duration("timeout", 5*time.Second, "per request timeout")
	flag.Parse()

	log := logger.New("warn", true)

	pool := grpc.NewPool(grpc.WithClientLogger(log))
	defer pool.Close()
	conn, err := pool.GetConnection(*addr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", *addr).Msg("failed to connect")
	}

	m := newMenu(grpc_adapter.NewClient(conn), os.Stdin, os.Stdout, *timeout)
	m.run()
}
