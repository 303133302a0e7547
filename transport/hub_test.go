package transport

import (
	"net"
	"testing"
	"time"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func TestHubClientHandshakeAndBroadcast(t *testing.T) {
	addr := freeAddr(t)
	const worldSize = 3

	hub := NewHub(worldSize, false)
	listenErrCh := make(chan error, 1)
	go func() { listenErrCh <- hub.Listen(addr) }()
	time.Sleep(50 * time.Millisecond) // let the listener bind

	workerInbox := make(chan Msg, 16)
	clients := make([]*Client, 0, worldSize-1)
	for rank := 1; rank < worldSize; rank++ {
		c, err := Dial(addr, rank, worldSize, false, workerInbox)
		if err != nil {
			t.Fatalf("rank %d dial: %v", rank, err)
		}
		clients = append(clients, c)
	}

	select {
	case err := <-listenErrCh:
		if err != nil {
			t.Fatalf("Listen returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Listen to accept all workers")
	}

	type payload struct {
		Round int `json:"round"`
	}
	if err := hub.Broadcast(payload{Round: 7}); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	for range clients {
		select {
		case msg := <-workerInbox:
			if msg.Tag != TagControl {
				t.Fatalf("tag = %v, want TagControl", msg.Tag)
			}
			var p payload
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				t.Fatalf("decoding broadcast payload: %v", err)
			}
			if p.Round != 7 {
				t.Fatalf("Round = %d, want 7", p.Round)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for broadcast to reach worker")
		}
	}

	hub.Close()
	for _, c := range clients {
		c.Close()
	}
}

func TestHubBarrier(t *testing.T) {
	addr := freeAddr(t)
	const worldSize = 3

	hub := NewHub(worldSize, false)
	go hub.Listen(addr)
	time.Sleep(50 * time.Millisecond)

	workerInbox := make(chan Msg, 16)
	clients := make([]*Client, 0, worldSize-1)
	for rank := 1; rank < worldSize; rank++ {
		c, err := Dial(addr, rank, worldSize, false, workerInbox)
		if err != nil {
			t.Fatalf("rank %d dial: %v", rank, err)
		}
		clients = append(clients, c)
	}
	time.Sleep(50 * time.Millisecond) // let the hub finish accepting

	barrierDone := make(chan error, 1)
	go func() { barrierDone <- hub.Barrier() }()

	for _, c := range clients {
		if err := c.Ready(); err != nil {
			t.Fatalf("Ready: %v", err)
		}
	}

	select {
	case err := <-barrierDone:
		if err != nil {
			t.Fatalf("Barrier: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for barrier to complete")
	}

	for range clients {
		select {
		case msg := <-workerInbox:
			if msg.Tag != TagControl {
				t.Fatalf("tag = %v, want TagControl", msg.Tag)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for barrier go message")
		}
	}

	hub.Close()
	for _, c := range clients {
		c.Close()
	}
}
