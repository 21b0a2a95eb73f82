package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"houseprice/ml"
)

func TestFeedHubBroadcast(t *testing.T) {
	hub := NewFeedHub(zap.NewNop())
	go hub.Run()
	defer hub.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/ws/feed", hub.HandleUpgrade)
	server := httptest.NewServer(mux)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws/feed"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer conn.Close()

	// give the hub a moment to register the subscriber
	time.Sleep(50 * time.Millisecond)

	features := ml.HouseFeatures{Bedrooms: 3, Bathrooms: 2, SqftLiving: 1800, Floors: 1, Age: 10}
	hub.Publish(features, 435286)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("no event received: %v", err)
	}

	var payload PredictionEvent
	if err := json.Unmarshal(message, &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload.PredictedPrice != 435286 {
		t.Fatalf("unexpected price: %f", payload.PredictedPrice)
	}
	if payload.Features["sqft_living"] != 1800 {
		t.Fatalf("unexpected features: %v", payload.Features)
	}
}

func TestFeedHubPublishWithoutClients(t *testing.T) {
	hub := NewFeedHub(zap.NewNop())
	go hub.Run()
	defer hub.Stop()

	// must not block even with nobody listening
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.Publish(ml.HouseFeatures{Bedrooms: 3}, 100000)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked with no subscribers")
	}
}
