package grpc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
)

// Pool 依目標地址快取 gRPC 連線，同一個地址只維護一條連線。
// 連線預設使用 JSON codec 與不加密傳輸 (內部網路)。
type Pool struct {
	mu        sync.RWMutex
	conns     map[string]*grpc.ClientConn
	keepalive keepalive.ClientParameters
	opts      []grpc.DialOption
}

// PoolOption 定義了 Pool 的配置選項函數
type PoolOption func(*Pool)

// WithInterceptor 加入全局的 UnaryClientInterceptor
func WithInterceptor(interceptor grpc.UnaryClientInterceptor) PoolOption {
	return func(p *Pool) {
		p.opts = append(p.opts, grpc.WithChainUnaryInterceptor(interceptor))
	}
}

// WithClientLogger 以 zerolog 記錄每次呼叫的方法、耗時與狀態碼
func WithClientLogger(log zerolog.Logger) PoolOption {
	return WithInterceptor(func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		start := time.Now()
		err := invoker(ctx, method, req, reply, cc, opts...)
		log.Debug().
			Str("method", method).
			Str("code", status.Code(err).String()).
			Dur("latency", time.Since(start)).
			Msg("grpc call")
		return err
	})
}

// WithKeepalive 覆寫 keepalive 設定
func WithKeepalive(interval, timeout time.Duration) PoolOption {
	return func(p *Pool) {
		p.keepalive.Time = interval
		p.keepalive.Timeout = timeout
	}
}

func NewPool(opts ...PoolOption) *Pool {
	p := &Pool{
		conns: make(map[string]*grpc.ClientConn),
		keepalive: keepalive.ClientParameters{
			Time:                10 * time.Second, // 無活動時每 10 秒 ping 一次
			Timeout:             time.Second,
			PermitWithoutStream: true,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetConnection 取得 target 的連線；不存在或已關閉時建立新的。
// grpc.NewClient 是 lazy 的，真正的連線在第一次呼叫時才建立。
func (p *Pool) GetConnection(target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	p.mu.RLock()
	conn, ok := p.conns[target]
	p.mu.RUnlock()
	if ok && conn.GetState() != connectivity.Shutdown {
		return conn, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if conn, ok := p.conns[target]; ok {
		if conn.GetState() != connectivity.Shutdown {
			return conn, nil
		}
		delete(p.conns, target)
	}

	dialOpts := []grpc.DialOption{
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(JSONCodecName)),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(p.keepalive),
	}
	dialOpts = append(dialOpts, p.opts...)
	dialOpts = append(dialOpts, opts...)

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for target %s: %w", target, err)
	}
	p.conns[target] = conn
	return conn, nil
}

// Close 關閉所有連線，回傳第一個遇到的錯誤
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for target, conn := range p.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.conns, target)
	}
	return firstErr
}
