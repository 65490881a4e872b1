package signalbus

import (
	"errors"
	"testing"

	"github.com/openclaw/openclaw/internal/signals"
)

func TestEmit_InvokesEachHandlerExactlyOnce(t *testing.T) {
	b := New()
	var calls int
	b.Subscribe(signals.TypeNoteModified, func(signals.Signal) error {
		calls++
		return nil
	})

	b.Emit(signals.Signal{Type: signals.TypeNoteModified})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestEmit_HandlerErrorInvokesOnErrorAndContinues(t *testing.T) {
	b := New()
	var gotType signals.Type
	var gotIndex int
	var gotErr error
	b.OnError(func(typ signals.Type, index int, err error) {
		gotType, gotIndex, gotErr = typ, index, err
	})

	boom := errors.New("boom")
	secondCalled := false
	b.Subscribe(signals.TypeNoteModified, func(signals.Signal) error { return boom })
	b.Subscribe(signals.TypeNoteModified, func(signals.Signal) error {
		secondCalled = true
		return nil
	})

	b.Emit(signals.Signal{Type: signals.TypeNoteModified})

	if gotType != signals.TypeNoteModified || gotIndex != 0 || gotErr != boom {
		t.Errorf("onError got (%v, %d, %v)", gotType, gotIndex, gotErr)
	}
	if !secondCalled {
		t.Error("second handler should still run after first fails")
	}
}

func TestEmit_HandlerSubscribedDuringDispatchSkipsCurrentEmission(t *testing.T) {
	b := New()
	var lateCalls int
	b.Subscribe(signals.TypeNoteModified, func(signals.Signal) error {
		b.Subscribe(signals.TypeNoteModified, func(signals.Signal) error {
			lateCalls++
			return nil
		})
		return nil
	})

	b.Emit(signals.Signal{Type: signals.TypeNoteModified})
	if lateCalls != 0 {
		t.Errorf("handler subscribed mid-dispatch ran during same emission, lateCalls=%d", lateCalls)
	}

	b.Emit(signals.Signal{Type: signals.TypeNoteModified})
	if lateCalls != 1 {
		t.Errorf("handler subscribed mid-dispatch should run on next emission, lateCalls=%d", lateCalls)
	}
}

func TestSubscribe_DuplicateHandlerInvokedTwiceOneUnsubscribeLeavesOne(t *testing.T) {
	b := New()
	var calls int
	handler := func(signals.Signal) error {
		calls++
		return nil
	}
	unsub1 := b.Subscribe(signals.TypeNoteModified, handler)
	b.Subscribe(signals.TypeNoteModified, handler)

	b.Emit(signals.Signal{Type: signals.TypeNoteModified})
	if calls != 2 {
		t.Fatalf("calls after first emit = %d, want 2", calls)
	}

	unsub1()
	calls = 0
	b.Emit(signals.Signal{Type: signals.TypeNoteModified})
	if calls != 1 {
		t.Errorf("calls after unsubscribing one registration = %d, want 1", calls)
	}
}

func TestUnsubscribe_Idempotent(t *testing.T) {
	b := New()
	unsub := b.Subscribe(signals.TypeNoteModified, func(signals.Signal) error { return nil })
	unsub()
	unsub() // must not panic or remove anything else

	if got := b.SubscriberCount(signals.TypeNoteModified); got != 0 {
		t.Errorf("SubscriberCount = %d, want 0", got)
	}
}

func TestClear_RemovesAllSubscriptions(t *testing.T) {
	b := New()
	b.Subscribe(signals.TypeNoteModified, func(signals.Signal) error { return nil })
	b.Subscribe(signals.TypeDigestReady, func(signals.Signal) error { return nil })

	b.Clear()

	if got := b.SubscriberCount(signals.TypeNoteModified); got != 0 {
		t.Errorf("SubscriberCount(note-modified) = %d, want 0", got)
	}
	if got := b.SubscriberCount(signals.TypeDigestReady); got != 0 {
		t.Errorf("SubscriberCount(digest-ready) = %d, want 0", got)
	}
}

func TestEmit_NoSubscribersIsNoop(t *testing.T) {
	b := New()
	b.Emit(signals.Signal{Type: signals.TypeNoteModified}) // must not panic
}
