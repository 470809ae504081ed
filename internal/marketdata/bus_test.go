package marketdata

import "testing"

func TestBusFanOut(t *testing.T) {
	b := NewBus()
	a := b.Subscribe()
	c := b.Subscribe()

	b.Publish(Event{Type: EventTrade, Data: "x"})

	for _, ch := range []chan Event{a, c} {
		select {
		case evt := <-ch:
			if evt.Type != EventTrade {
				t.Fatalf("type: got %q", evt.Type)
			}
		default:
			t.Fatal("subscriber missed event")
		}
	}
}

func TestBusDropsWhenSubscriberFull(t *testing.T) {
	b := NewBus()
	ch := b.Subscribe()
	for i := 0; i < cap(ch)+10; i++ {
		b.Publish(Event{Type: EventQuote})
	}
	if len(ch) != cap(ch) {
		t.Fatalf("buffered: got %d, want %d", len(ch), cap(ch))
	}
	// The publisher never blocked to get here; that is the contract.
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBus()
	ch := b.Subscribe()
	b.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel not closed")
	}
	// Publishing after unsubscribe must not panic.
	b.Publish(Event{Type: EventQuote})
}

func TestNilBusPublishSafe(t *testing.T) {
	var b *Bus
	b.Publish(Event{Type: EventQuote})
}
