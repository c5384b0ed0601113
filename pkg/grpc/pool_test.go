package grpc

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestPoolReusesConnectionPerTarget(t *testing.T) {
	p := NewPool()
	c1, err := p.GetConnection("localhost:50051")
	if err != nil {
		t.Fatal(err)
	}
	c2, err := p.GetConnection("localhost:50051")
	if err != nil {
		t.Fatal(err)
	}
	if c1 != c2 {
		t.Fatal("expected the same connection for the same target")
	}
	c3, err := p.GetConnection("localhost:50052")
	if err != nil {
		t.Fatal(err)
	}
	if c3 == c1 {
		t.Fatal("expected a different connection for another target")
	}

	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	c4, err := p.GetConnection("localhost:50051")
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	if c4 == c1 {
		t.Fatal("closed connection should not be reused")
	}
}

func TestPoolOptions(t *testing.T) {
	p := NewPool(WithKeepalive(30*time.Second, 3*time.Second), WithClientLogger(zerolog.Nop()))
	defer p.Close()
	if p.keepalive.Time != 30*time.Second || p.keepalive.Timeout != 3*time.Second {
		t.Fatalf("keepalive = %+v", p.keepalive)
	}
	if !p.keepalive.PermitWithoutStream {
		t.Fatal("PermitWithoutStream should keep its default")
	}
	if len(p.opts) != 1 {
		t.Fatalf("len(opts) = %d, want 1", len(p.opts))
	}
	if _, err := p.GetConnection("localhost:50051"); err != nil {
		t.Fatal(err)
	}
}

func TestJSONCodecRoundTrip(t *testing.T) {
	type msg struct {
		Account string `json:"account"`
		Amount  string `json:"amount"`
	}
	c := jsonCodec{}
	data, err := c.Marshal(&msg{Account: "ACC100001", Amount: "10.50"})
	if err != nil {
		t.Fatal(err)
	}
	var out msg
	if err := c.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Account != "ACC100001" || out.Amount != "10.50" || c.Name() != JSONCodecName {
		t.Fatalf("unexpected %+v", out)
	}
}
