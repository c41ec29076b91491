package event

import "testing"

func TestFeedEmitWithoutSubscribers(t *testing.T) {
	var f Feed[int]
	f.Emit(1)
	if f.Len() != 0 {
		t.Fatalf("Len = %d", f.Len())
	}
}

func TestFeedDeliversInOrder(t *testing.T) {
	var f Feed[string]
	var got []string
	f.Subscribe(func(s string) { got = append(got, "a:"+s) })
	f.Subscribe(func(s string) { got = append(got, "b:"+s) })

	f.Emit("x")

	if len(got) != 2 || got[0] != "a:x" || got[1] != "b:x" {
		t.Fatalf("got %v", got)
	}
}

func TestFeedCancel(t *testing.T) {
	var f Feed[int]
	calls := 0
	cancel := f.Subscribe(func(int) { calls++ })

	f.Emit(1)
	cancel()
	cancel()
	f.Emit(2)

	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if f.Len() != 0 {
		t.Fatalf("Len = %d after cancel", f.Len())
	}
}

func TestFeedCancelDuringEmit(t *testing.T) {
	var f Feed[int]
	var second int
	var cancelSecond func()
	f.Subscribe(func(int) { cancelSecond() })
	cancelSecond = f.Subscribe(func(int) { second++ })

	// The snapshot taken before dispatch still includes the second subscriber.
	f.Emit(1)
	f.Emit(2)

	if second != 1 {
		t.Fatalf("second subscriber called %d times, want 1", second)
	}
}

func TestFeedSubscribeDuringEmit(t *testing.T) {
	var f Feed[int]
	added := 0
	f.Subscribe(func(int) {
		f.Subscribe(func(int) { added++ })
	})

	f.Emit(1)
	if added != 0 {
		t.Fatalf("subscriber added during emit ran in the same emit")
	}
	f.Emit(2)
	if added != 1 {
		t.Fatalf("added = %d, want 1", added)
	}
}
