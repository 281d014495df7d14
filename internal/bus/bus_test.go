package bus

import (
	"sync"
	"testing"
	"time"
)

type startMsg struct {
	StartTime string `json:"start_time"`
}

func TestPublishSubscribeTopicPrefix(t *testing.T) {
	pub, err := NewPublisher("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	defer pub.Close()

	var mu sync.Mutex
	var gotTopics []string
	done := make(chan struct{}, 4)

	sub := NewSubscriber("start", func(topic string, payload []byte) {
		mu.Lock()
		gotTopics = append(gotTopics, topic)
		mu.Unlock()
		done <- struct{}{}
	})
	if err := sub.Connect(pub.Addr()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer sub.Close()

	time.Sleep(SettleDelay())

	if err := pub.Publish("stop", struct{}{}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := pub.Publish("start", startMsg{StartTime: "2026-01-01T00:00:00Z"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for filtered message")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(gotTopics) != 1 || gotTopics[0] != "start" {
		t.Errorf("expected only the \"start\" topic to be delivered, got %v", gotTopics)
	}
}

func TestPublishWithNoSubscriberDoesNotFail(t *testing.T) {
	pub, err := NewPublisher("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	defer pub.Close()

	// Publish with no subscriber connected yet; this must not block or panic.
	if err := pub.Publish("stop", struct{}{}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
}

func TestMultipleSubscribersAllReceive(t *testing.T) {
	pub, err := NewPublisher("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	defer pub.Close()

	const n = 3
	var wg sync.WaitGroup
	wg.Add(n)

	for i := 0; i < n; i++ {
		sub := NewSubscriber("", func(topic string, payload []byte) {
			wg.Done()
		})
		if err := sub.Connect(pub.Addr()); err != nil {
			t.Fatalf("Connect: %v", err)
		}
		defer sub.Close()
	}

	time.Sleep(SettleDelay())
	if err := pub.Publish("stop", struct{}{}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	doneCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneCh)
	}()

	select {
	case <-doneCh:
	case <-time.After(2 * time.Second):
		t.Fatal("not all subscribers received the broadcast")
	}
}
