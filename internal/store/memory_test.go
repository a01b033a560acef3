package store

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type testRecord struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Done  bool   `json:"done"`
}

func TestCreateReadDelete(t *testing.T) {
	conn := NewMemory().Connect()
	defer conn.Close()

	if err := conn.Create("duels/ABC123", testRecord{Name: "one", Count: 1}); err != nil {
		t.Fatal(err)
	}
	if err := conn.Create("duels/ABC123", testRecord{}); !errors.Is(err, ErrExists) {
		t.Errorf("expected ErrExists, got %v", err)
	}

	var got testRecord
	if err := conn.Read("duels/ABC123", &got); err != nil {
		t.Fatal(err)
	}
	if got.Name != "one" || got.Count != 1 {
		t.Errorf("read back %+v", got)
	}

	if err := conn.Delete("duels/ABC123"); err != nil {
		t.Fatal(err)
	}
	if err := conn.Read("duels/ABC123", &got); !errors.Is(err, ErrAbsent) {
		t.Errorf("expected ErrAbsent, got %v", err)
	}
}

func TestUpdateIsAMergePatch(t *testing.T) {
	conn := NewMemory().Connect()
	defer conn.Close()

	if err := conn.Create("duels/ABC123", testRecord{Name: "one", Count: 1}); err != nil {
		t.Fatal(err)
	}

	if err := conn.Update("duels/ABC123", map[string]interface{}{"count": 2, "done": true}); err != nil {
		t.Fatal(err)
	}

	var got testRecord
	if err := conn.Read("duels/ABC123", &got); err != nil {
		t.Fatal(err)
	}
	if got.Name != "one" {
		t.Errorf("merge patch clobbered an untouched field: %+v", got)
	}
	if got.Count != 2 || !got.Done {
		t.Errorf("merge patch not applied: %+v", got)
	}

	if err := conn.Update("duels/NOPE", map[string]interface{}{"count": 1}); !errors.Is(err, ErrAbsent) {
		t.Errorf("expected ErrAbsent, got %v", err)
	}
}

func waitSnapshot(t *testing.T, w Watcher) json.RawMessage {
	t.Helper()

	select {
	case snap := <-w.Snapshots():
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a snapshot")
		return nil
	}
}

func TestWatchFiresImmediatelyAndOnChange(t *testing.T) {
	memory := NewMemory()
	writer := memory.Connect()
	reader := memory.Connect()
	defer writer.Close()
	defer reader.Close()

	if err := writer.Create("duels/ABC123", testRecord{Count: 1}); err != nil {
		t.Fatal(err)
	}

	w, err := reader.Watch("duels/ABC123")
	if err != nil {
		t.Fatal(err)
	}
	defer w.Cancel()

	var got testRecord
	if err := json.Unmarshal(waitSnapshot(t, w), &got); err != nil {
		t.Fatal(err)
	}
	if got.Count != 1 {
		t.Errorf("immediate snapshot should hold the current value, got %+v", got)
	}

	if err := writer.Update("duels/ABC123", map[string]interface{}{"count": 2}); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(waitSnapshot(t, w), &got); err != nil {
		t.Fatal(err)
	}
	if got.Count != 2 {
		t.Errorf("expected updated snapshot, got %+v", got)
	}

	if err := writer.Delete("duels/ABC123"); err != nil {
		t.Fatal(err)
	}
	if snap := waitSnapshot(t, w); snap != nil {
		t.Errorf("expected nil snapshot after delete, got %s", snap)
	}
}

func TestWatchCoalescesUnderLag(t *testing.T) {
	memory := NewMemory()
	writer := memory.Connect()
	reader := memory.Connect()
	defer writer.Close()
	defer reader.Close()

	if err := writer.Create("duels/ABC123", testRecord{Count: 0}); err != nil {
		t.Fatal(err)
	}

	w, err := reader.Watch("duels/ABC123")
	if err != nil {
		t.Fatal(err)
	}
	defer w.Cancel()

	// Nobody drains the channel while we write way past its capacity.
	for i := 1; i <= 100; i++ {
		if err := writer.Update("duels/ABC123", map[string]interface{}{"count": i}); err != nil {
			t.Fatal(err)
		}
	}

	var last testRecord
	for snap := waitSnapshot(t, w); ; snap = waitSnapshot(t, w) {
		if err := json.Unmarshal(snap, &last); err != nil {
			t.Fatal(err)
		}
		if last.Count == 100 {
			return // the latest write always comes through
		}
	}
}

func TestDisconnectHooks(t *testing.T) {
	memory := NewMemory()
	creator := memory.Connect()
	observer := memory.Connect()
	defer observer.Close()

	if err := creator.Create("duels/ABC123", testRecord{Name: "lobby"}); err != nil {
		t.Fatal(err)
	}
	if _, err := creator.OnDisconnectDelete("duels/ABC123"); err != nil {
		t.Fatal(err)
	}

	creator.Drop()

	var got testRecord
	if err := observer.Read("duels/ABC123", &got); !errors.Is(err, ErrAbsent) {
		t.Errorf("expected the record gone after drop, got %v", err)
	}
}

func TestCancelledHookDoesNotFire(t *testing.T) {
	memory := NewMemory()
	creator := memory.Connect()
	observer := memory.Connect()
	defer observer.Close()

	if err := creator.Create("duels/ABC123", testRecord{Name: "lobby"}); err != nil {
		t.Fatal(err)
	}

	hook, err := creator.OnDisconnectUpdate("duels/ABC123", map[string]interface{}{"done": true})
	if err != nil {
		t.Fatal(err)
	}
	hook.Cancel()
	creator.Drop()

	var got testRecord
	if err := observer.Read("duels/ABC123", &got); err != nil {
		t.Fatal(err)
	}
	if got.Done {
		t.Error("cancelled hook fired anyway")
	}
}

func TestHookOnAbsentPathIsANoOp(t *testing.T) {
	memory := NewMemory()
	conn := memory.Connect()

	if _, err := conn.OnDisconnectUpdate("duels/GONE", map[string]interface{}{"done": true}); err != nil {
		t.Fatal(err)
	}

	conn.Drop() // must not panic or resurrect the record

	observer := memory.Connect()
	defer observer.Close()
	keys, err := observer.Keys("duels/")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 0 {
		t.Errorf("expected no records, got %v", keys)
	}
}

func TestClosedConnRejectsEverything(t *testing.T) {
	conn := NewMemory().Connect()
	conn.Close()

	if err := conn.Create("duels/ABC123", testRecord{}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if _, err := conn.Watch("duels/ABC123"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestKeys(t *testing.T) {
	conn := NewMemory().Connect()
	defer conn.Close()

	for _, path := range []string{"duels/B", "duels/A", "presence/x"} {
		if err := conn.Create(path, testRecord{}); err != nil {
			t.Fatal(err)
		}
	}

	keys, err := conn.Keys("duels/")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 || keys[0] != "duels/A" || keys[1] != "duels/B" {
		t.Errorf("unexpected keys: %v", keys)
	}
}
