package netpool

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func pipeDialer() (dial func(ctx context.Context) (net.Conn, error), dialed *int) {
	dialed = new(int)
	dial = func(ctx context.Context) (net.Conn, error) {
		*dialed++
		client, _ := net.Pipe()
		return client, nil
	}
	return
}

func TestPoolReusesReleased(t *testing.T) {
	p := NewPool(4, 4)
	dial, dialed := pipeDialer()

	c, err := p.Connect(context.Background(), dial)
	if err != nil {
		t.Fatal(err)
	}
	c.SetSession("parser state")
	first := c.Raw()
	c.Release()

	c, err = p.Connect(context.Background(), dial)
	if err != nil {
		t.Fatal(err)
	}
	if *dialed != 1 {
		t.Errorf("dialed %d times", *dialed)
	}
	if c.Raw() != first {
		t.Error("got a different connection back")
	}
	if c.Session() != "parser state" {
		t.Error("session did not survive the round-trip")
	}
	c.Release()
}

func TestPoolClosedNotReused(t *testing.T) {
	p := NewPool(4, 4)
	dial, dialed := pipeDialer()

	c, _ := p.Connect(context.Background(), dial)
	c.Close()

	c, err := p.Connect(context.Background(), dial)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if *dialed != 2 {
		t.Errorf("dialed %d times, want 2", *dialed)
	}
}

func TestPoolReleaseIdempotent(t *testing.T) {
	p := NewPool(4, 1)
	dial, _ := pipeDialer()
	c, _ := p.Connect(context.Background(), dial)
	c.Release()
	c.Release()
	c.Close()

	// the single conn ticket must still be available
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c, err := p.Connect(ctx, dial)
	if err != nil {
		t.Fatal(err)
	}
	c.Close()
}

func TestPoolConnLimitBlocks(t *testing.T) {
	p := NewPool(1, 1)
	dial, _ := pipeDialer()

	held, err := p.Connect(context.Background(), dial)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := p.Connect(ctx, dial); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}

	held.Release()
	c, err := p.Connect(context.Background(), dial)
	if err != nil {
		t.Fatal(err)
	}
	c.Close()
}

func TestPoolIdleCapDiscards(t *testing.T) {
	p := NewPool(1, 2)
	dial, dialed := pipeDialer()

	a, _ := p.Connect(context.Background(), dial)
	b, _ := p.Connect(context.Background(), dial)
	a.Release()
	b.Release() // no idle slot left: closed instead of pooled

	c, _ := p.Connect(context.Background(), dial)
	d, _ := p.Connect(context.Background(), dial)
	defer c.Close()
	defer d.Close()
	if *dialed != 3 {
		t.Errorf("dialed %d times, want 3", *dialed)
	}
}

func TestPoolIdleExpiry(t *testing.T) {
	p := NewPool(4, 4)
	p.SetMaxIdleDuration(time.Millisecond)
	dial, dialed := pipeDialer()

	c, _ := p.Connect(context.Background(), dial)
	c.Release()
	time.Sleep(5 * time.Millisecond)

	c, err := p.Connect(context.Background(), dial)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if *dialed != 2 {
		t.Errorf("dialed %d times, want 2", *dialed)
	}
}

func TestGroupBucketsByKey(t *testing.T) {
	g := NewGroup(4, 4)
	dial, dialed := pipeDialer()

	a, err := g.Connect(context.Background(), "key-a", dial)
	if err != nil {
		t.Fatal(err)
	}
	a.Release()

	b, err := g.Connect(context.Background(), "key-b", dial)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if *dialed != 2 {
		t.Errorf("dialed %d times, want 2", *dialed)
	}

	again, err := g.Connect(context.Background(), "key-a", dial)
	if err != nil {
		t.Fatal(err)
	}
	defer again.Close()
	if *dialed != 2 {
		t.Errorf("dialed %d times after reuse, want 2", *dialed)
	}
}
