package player

import (
	"sync"
	"testing"
	"time"
)

func TestHubRegisterDisplacesOldConnection(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	oldClient := &Client{Hub: h, Send: make(chan []byte, 8), UserID: 7}
	h.Register(oldClient)
	newClient := &Client{Hub: h, Send: make(chan []byte, 8), UserID: 7}
	h.Register(newClient)

	if !waitUntil(time.Second, func() bool {
		select {
		case _, ok := <-oldClient.Send:
			return !ok
		default:
			return false
		}
	}) {
		t.Fatal("displaced connection's send channel was not closed")
	}

	h.Publish(7, PlayerEvent{Kind: EventNotify, Message: "hello"})
	select {
	case data := <-newClient.Send:
		if len(data) == 0 {
			t.Fatal("received empty message on new connection")
		}
	case <-time.After(time.Second):
		t.Fatal("new connection did not receive the published event")
	}
}

// 同一用户重连顶掉旧连接时，并发的发送不能撞上已关闭的通道。
func TestHubSendDuringReconnectDoesNotPanic(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				h.Publish(7, PlayerEvent{Kind: EventPosition, Position: 1})
			}
		}
	}()

	for i := 0; i < 200; i++ {
		h.Register(&Client{Hub: h, Send: make(chan []byte, 1), UserID: 7})
	}

	close(done)
	wg.Wait()
}
