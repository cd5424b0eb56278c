package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nhooyr.io/websocket"
)

// newConnTestServer upgrades each connection, adds it to the manager and
// reports the server-side client on the returned channel.
func newConnTestServer(t *testing.T, cm *ConnManager) (*httptest.Server, chan *Client) {
	t.Helper()
	clients := make(chan *Client, 8)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		client := &Client{conn: conn, session: &Session{}}
		ctx := cm.Add(client)
		clients <- client
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if _, _, err := conn.Read(r.Context()); err != nil {
				return
			}
		}
	}))
	return ts, clients
}

func TestConnManagerAddRemove(t *testing.T) {
	cm := NewConnManager()
	ts, clients := newConnTestServer(t, cm)
	defer ts.Close()

	conn := dialWS(t, ts.URL)
	defer conn.Close(websocket.StatusNormalClosure, "")
	client := <-clients

	if cm.Count() != 1 {
		t.Fatalf("expected 1 connection, got %d", cm.Count())
	}
	if client.send == nil {
		t.Fatal("expected send channel to be initialized")
	}

	cm.Remove(client)
	if cm.Count() != 0 {
		t.Fatalf("expected 0 connections after remove, got %d", cm.Count())
	}

	// Second remove is a no-op.
	cm.Remove(client)
}

func TestConnManagerSendThroughWritePump(t *testing.T) {
	cm := NewConnManager()
	ts, clients := newConnTestServer(t, cm)
	defer ts.Close()

	conn := dialWS(t, ts.URL)
	defer conn.Close(websocket.StatusNormalClosure, "")
	client := <-clients

	if !cm.Send(client, []byte(`{"type":"system","payload":"hi"}`)) {
		t.Fatal("expected send to succeed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if string(data) != `{"type":"system","payload":"hi"}` {
		t.Errorf("unexpected frame %s", data)
	}
}

func TestConnManagerSendBufferFull(t *testing.T) {
	cm := NewConnManager()

	// No write pump: the buffer fills and overflow is dropped.
	client := &Client{session: &Session{}}
	client.send = make(chan []byte, sendBufferSize)
	cm.mu.Lock()
	_, cancel := context.WithCancel(context.Background())
	cm.clients[client] = cancel
	cm.mu.Unlock()
	defer cancel()

	for i := 0; i < sendBufferSize; i++ {
		if !cm.Send(client, []byte("msg")) {
			t.Fatalf("send %d should have succeeded", i)
		}
	}
	if cm.Send(client, []byte("overflow")) {
		t.Fatal("expected send to fail when buffer is full")
	}
	if cm.Stats().DroppedMessages != 1 {
		t.Errorf("expected 1 dropped message, got %d", cm.Stats().DroppedMessages)
	}
}

func TestConnManagerMaxConns(t *testing.T) {
	cm := NewConnManager(WithMaxConns(1))
	ts, clients := newConnTestServer(t, cm)
	defer ts.Close()

	conn1 := dialWS(t, ts.URL)
	defer conn1.Close(websocket.StatusNormalClosure, "")
	<-clients

	conn2 := dialWS(t, ts.URL)
	defer conn2.Close(websocket.StatusNormalClosure, "")
	<-clients

	// The second connection is rejected and closed by the server.
	deadline := time.Now().Add(2 * time.Second)
	for cm.Stats().Rejected == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if cm.Stats().Rejected != 1 {
		t.Fatalf("expected 1 rejected connection, got %d", cm.Stats().Rejected)
	}
	if cm.Count() != 1 {
		t.Fatalf("expected 1 active connection, got %d", cm.Count())
	}
}

func TestConnManagerShutdown(t *testing.T) {
	cm := NewConnManager()
	ts, clients := newConnTestServer(t, cm)
	defer ts.Close()

	conn := dialWS(t, ts.URL)
	defer conn.Close(websocket.StatusNormalClosure, "")
	<-clients

	cm.Shutdown()

	if cm.Count() != 0 {
		t.Fatalf("expected 0 connections after shutdown, got %d", cm.Count())
	}

	// The WebSocket is closed: reads fail.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, _, err := conn.Read(ctx); err == nil {
		t.Fatal("expected read to fail after shutdown")
	}
}

func TestConnManagerShutdownRejectsNew(t *testing.T) {
	cm := NewConnManager()
	cm.Shutdown()

	ts, clients := newConnTestServer(t, cm)
	defer ts.Close()

	conn := dialWS(t, ts.URL)
	defer conn.Close(websocket.StatusNormalClosure, "")
	<-clients

	if cm.Count() != 0 {
		t.Fatalf("expected 0 connections after shutdown, got %d", cm.Count())
	}
}
