package broadcast

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

type fakeSubscribers struct {
	mu   sync.Mutex
	ids  []string
	gone map[string]bool
}

func newFakeSubscribers(ids ...string) *fakeSubscribers {
	return &fakeSubscribers{ids: ids, gone: make(map[string]bool)}
}

func (f *fakeSubscribers) Subscribers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, id := range f.ids {
		if !f.gone[id] {
			out = append(out, id)
		}
	}
	return out
}

func (f *fakeSubscribers) Remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gone[id] = true
}

type fakeSender struct {
	mu  sync.Mutex
	out []string
	// fail, when set, is called per recipientID to decide the error (if any)
	// to return instead of succeeding.
	fail func(recipientID string) error
}

func (f *fakeSender) Send(_ context.Context, recipientID, message string) error {
	if f.fail != nil {
		if err := f.fail(recipientID); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = append(f.out, recipientID+":"+message)
	return nil
}

func (f *fakeSender) delivered() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.out...)
}

func TestBroadcastDeliversToEverySubscriber(t *testing.T) {
	t.Parallel()
	subs := newFakeSubscribers("u1", "u2", "u3")
	sender := &fakeSender{}
	b := New(sender, subs, 2, 1000)

	b.Broadcast(context.Background(), "alert text")

	if got := len(sender.delivered()); got != 3 {
		t.Fatalf("delivered to %d recipients, want 3", got)
	}
}

func TestBroadcastNoSubscribersIsNoOp(t *testing.T) {
	t.Parallel()
	subs := newFakeSubscribers()
	sender := &fakeSender{}
	b := New(sender, subs, 0, 1000)

	b.Broadcast(context.Background(), "alert text")

	if got := len(sender.delivered()); got != 0 {
		t.Fatalf("delivered to %d recipients, want 0", got)
	}
}

func TestBroadcastTerminalFailureRemovesRecipient(t *testing.T) {
	t.Parallel()
	subs := newFakeSubscribers("u1", "u2")
	sender := &fakeSender{fail: func(id string) error {
		if id == "u1" {
			return &RecipientError{Err: fmt.Errorf("blocked"), Terminal: true}
		}
		return nil
	}}
	b := New(sender, subs, 2, 1000)

	b.Broadcast(context.Background(), "first")
	if got := subs.Subscribers(); len(got) != 1 || got[0] != "u2" {
		t.Fatalf("subscribers after terminal failure = %v, want [u2]", got)
	}

	b.Broadcast(context.Background(), "second")
	if got := sender.delivered(); len(got) != 2 {
		// u2 gets "first" and "second"; u1's one attempt failed terminally
		// and is removed before "second" goes out, so it never appends.
		t.Fatalf("delivered = %v, want exactly 2 successful sends to u2", got)
	}
}

func TestBroadcastNonTerminalFailureKeepsRecipient(t *testing.T) {
	t.Parallel()
	subs := newFakeSubscribers("u1")
	sender := &fakeSender{fail: func(string) error {
		return fmt.Errorf("temporary network error")
	}}
	b := New(sender, subs, 1, 1000)

	b.Broadcast(context.Background(), "alert")

	if got := subs.Subscribers(); len(got) != 1 {
		t.Fatalf("subscribers = %v, want u1 still present after a non-terminal failure", got)
	}
}
