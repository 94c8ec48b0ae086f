package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"azurebot/internal/queue"
	"azurebot/internal/store"
)

type fakeVMs struct {
	mu      sync.Mutex
	started []string
	stopped []string
	fail    error
}

func (f *fakeVMs) Start(_ context.Context, resourceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.started = append(f.started, resourceID)
	return nil
}

func (f *fakeVMs) Stop(_ context.Context, resourceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.stopped = append(f.stopped, resourceID)
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	contents []string
	tokens   []string
}

func (f *fakeNotifier) EditOriginalResponse(_ context.Context, _, token, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	f.contents = append(f.contents, content)
	return nil
}

func newWorker(q queue.Receiver, servers store.ServerStore, vms VMController, n Notifier) *Worker {
	return &Worker{
		Queue:         q,
		Servers:       servers,
		VMs:           vms,
		Notifier:      n,
		ApplicationID: "app-1",
		Log:           zerolog.Nop(),
	}
}

func registeredServer(t *testing.T) *store.MemoryStore {
	t.Helper()
	servers := store.NewMemoryStore()
	servers.Put(store.GameServer{ID: store.Key("foo", "g"), Name: "foo", ResourceID: "/subscriptions/s/resourceGroups/rg/providers/Microsoft.Compute/virtualMachines/foo"})
	return servers
}

func TestRunOnce_StartsVMAndNotifies(t *testing.T) {
	q := queue.NewMemoryQueue()
	vms := &fakeVMs{}
	notifier := &fakeNotifier{}
	w := newWorker(q, registeredServer(t), vms, notifier)

	msg := queue.VMControlMessage{MessageID: "m1", FollowupToken: "tok", GuildID: "g", VMName: "foo", Action: queue.VMActionStart}
	if err := q.Publish(context.Background(), msg); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	idle, err := w.runOnce(context.Background())
	if err != nil || idle {
		t.Fatalf("runOnce = %v, %v", idle, err)
	}

	if len(vms.started) != 1 {
		t.Fatalf("expected 1 start, got %d", len(vms.started))
	}
	if len(notifier.contents) != 1 || notifier.contents[0] != "VM foo has been started" {
		t.Fatalf("unexpected notifications %v", notifier.contents)
	}
	if notifier.tokens[0] != "tok" {
		t.Fatalf("expected followup token tok, got %q", notifier.tokens[0])
	}
	if q.Len() != 0 {
		t.Fatal("message must be deleted after success")
	}
}

func TestRunOnce_EmptyQueueReportsIdle(t *testing.T) {
	w := newWorker(queue.NewMemoryQueue(), registeredServer(t), &fakeVMs{}, &fakeNotifier{})
	idle, err := w.runOnce(context.Background())
	if err != nil || !idle {
		t.Fatalf("runOnce = %v, %v; expected idle", idle, err)
	}
}

func TestRunOnce_DuplicateSuppressed(t *testing.T) {
	q := queue.NewMemoryQueue()
	vms := &fakeVMs{}
	w := newWorker(q, registeredServer(t), vms, &fakeNotifier{})

	msg := queue.VMControlMessage{MessageID: "dup", FollowupToken: "tok", GuildID: "g", VMName: "foo", Action: queue.VMActionStart}
	for i := 0; i < 2; i++ {
		if err := q.Publish(context.Background(), msg); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	for i := 0; i < 2; i++ {
		if _, err := w.runOnce(context.Background()); err != nil {
			t.Fatalf("runOnce %d: %v", i, err)
		}
	}

	if len(vms.started) != 1 {
		t.Fatalf("duplicate delivery must act once, got %d starts", len(vms.started))
	}
	if q.Len() != 0 {
		t.Fatal("duplicate must still be deleted")
	}
}

func TestRunOnce_ActionFailureLeavesMessage(t *testing.T) {
	q := queue.NewMemoryQueue()
	vms := &fakeVMs{fail: errors.New("throttled")}
	w := newWorker(q, registeredServer(t), vms, &fakeNotifier{})

	msg := queue.VMControlMessage{MessageID: "m1", GuildID: "g", VMName: "foo", Action: queue.VMActionStop}
	if err := q.Publish(context.Background(), msg); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if _, err := w.runOnce(context.Background()); err != nil {
		t.Fatalf("runOnce: %v", err)
	}
	if q.Len() != 0 {
		t.Fatal("failed message must stay in flight, not pending")
	}

	// Visibility timeout expires, the fault clears, the retry succeeds.
	q.RequeueInFlight()
	vms.fail = nil
	if _, err := w.runOnce(context.Background()); err != nil {
		t.Fatalf("retry runOnce: %v", err)
	}
	if len(vms.stopped) != 1 {
		t.Fatalf("expected stop after retry, got %d", len(vms.stopped))
	}
}

func TestRunOnce_MalformedMessageSkipped(t *testing.T) {
	q := queue.NewMemoryQueue()
	vms := &fakeVMs{}
	w := newWorker(q, registeredServer(t), vms, &fakeNotifier{})

	q.PublishRaw([]byte("not json"))
	idle, err := w.runOnce(context.Background())
	if err != nil || idle {
		t.Fatalf("runOnce = %v, %v", idle, err)
	}
	if len(vms.started)+len(vms.stopped) != 0 {
		t.Fatal("no action may run for a malformed message")
	}
}

func TestRunOnce_UnknownServerNotifies(t *testing.T) {
	q := queue.NewMemoryQueue()
	notifier := &fakeNotifier{}
	w := newWorker(q, store.NewMemoryStore(), &fakeVMs{}, notifier)

	msg := queue.VMControlMessage{MessageID: "m1", FollowupToken: "tok", GuildID: "g", VMName: "gone", Action: queue.VMActionStart}
	if err := q.Publish(context.Background(), msg); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if _, err := w.runOnce(context.Background()); err != nil {
		t.Fatalf("runOnce: %v", err)
	}
	if len(notifier.contents) != 1 || notifier.contents[0] != "Server gone could not be found" {
		t.Fatalf("unexpected notifications %v", notifier.contents)
	}
	if q.Len() != 0 {
		t.Fatal("not-found is terminal, message must be deleted")
	}
}
