package websocket_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla_ws "github.com/gorilla/websocket"
	"github.com/manjushapaul/Crypto-sub001/internal/models"
	"github.com/manjushapaul/Crypto-sub001/internal/websocket"
)

func TestManagerBroadcastsNotifications(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := websocket.NewManager(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go manager.Run(ctx)

	upgrader := gorilla_ws.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		client := websocket.NewClient(manager, conn)
		manager.Register(client)
		go client.Writer()
		go client.Reader()
	}))
	defer server.Close()

	conn, _, err := gorilla_ws.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for manager.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("client was never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	manager.Notify(models.NotificationEvent{
		Event:        "notification",
		Notification: models.Notification{ID: "n1", Message: "Bitcoin added to your portfolio", Kind: models.NotificationSuccess},
		Unread:       1,
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var event models.NotificationEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if event.Notification.ID != "n1" || event.Unread != 1 {
		t.Errorf("Unexpected event: %+v", event)
	}
}

func TestBroadcastWithoutRunDoesNotBlock(t *testing.T) {
	manager := websocket.NewManager(slog.New(slog.NewTextHandler(io.Discard, nil)))

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			manager.Broadcast([]byte("{}"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Broadcast blocked")
	}
}
