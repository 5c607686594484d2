package eventbus

import (
	"testing"
	"time"

	"github.com/tedkulp/cartulary-go/internal/model"
)

func TestFanOut_DeliversToAllLiveSubscribers(t *testing.T) {
	b := &Bus{subs: make(map[chan model.EventEnvelope]struct{})}
	ch1, cancel1 := b.Subscribe()
	ch2, cancel2 := b.Subscribe()
	defer cancel1()
	defer cancel2()

	env := model.EventEnvelope{Type: model.EventDocumentCreated, Data: map[string]any{"document_id": "d1"}}
	b.fanOut(env)

	select {
	case got := <-ch1:
		if got.Type != model.EventDocumentCreated {
			t.Errorf("ch1: expected %q, got %q", model.EventDocumentCreated, got.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("ch1: timed out waiting for event")
	}

	select {
	case got := <-ch2:
		if got.Type != model.EventDocumentCreated {
			t.Errorf("ch2: expected %q, got %q", model.EventDocumentCreated, got.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("ch2: timed out waiting for event")
	}
}

func TestFanOut_DropsDeadSubscriberOnFullBuffer(t *testing.T) {
	b := &Bus{subs: make(map[chan model.EventEnvelope]struct{})}
	_, cancel := b.Subscribe()
	defer cancel()

	// Fill the buffered channel past capacity without draining it.
	for i := 0; i < 40; i++ {
		b.fanOut(model.EventEnvelope{Type: model.EventDocumentUpdated})
	}

	b.mu.Lock()
	n := len(b.subs)
	b.mu.Unlock()
	if n != 0 {
		t.Errorf("expected dead subscriber to be dropped, %d remain", n)
	}
}

func TestSubscribe_CancelClosesChannel(t *testing.T) {
	b := &Bus{subs: make(map[chan model.EventEnvelope]struct{})}
	ch, cancel := b.Subscribe()
	cancel()

	_, ok := <-ch
	if ok {
		t.Error("expected channel to be closed after cancel")
	}
}
