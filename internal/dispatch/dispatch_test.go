package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"azurebot/internal/discord"
	"azurebot/internal/queue"
	"azurebot/internal/store"
)

func newDispatcher(t *testing.T) (*Dispatcher, *store.MemoryStore, *queue.MemoryQueue) {
	t.Helper()
	servers := store.NewMemoryStore()
	q := queue.NewMemoryQueue()
	return &Dispatcher{Servers: servers, Queue: q, Log: zerolog.Nop()}, servers, q
}

func controlInteraction(sub, vmName string) *discord.Interaction {
	return &discord.Interaction{
		ID:      "int-1",
		Type:    discord.InteractionTypeApplicationCommand,
		Token:   "tok-1",
		GuildID: "guild-1",
		Data: &discord.InteractionData{
			Name: "azurebot",
			Options: []discord.ApplicationCommandOption{{
				Name: "server",
				Type: discord.OptionTypeSubCommandGroup,
				Options: []discord.ApplicationCommandOption{{
					Name: sub,
					Type: discord.OptionTypeSubCommand,
					Options: []discord.ApplicationCommandOption{{
						Name:  "name",
						Type:  discord.OptionTypeString,
						Value: vmName,
					}},
				}},
			}},
		},
	}
}

func TestDispatch_Ping(t *testing.T) {
	d, _, _ := newDispatcher(t)
	cb, err := d.Dispatch(context.Background(), &discord.Interaction{Type: discord.InteractionTypePing})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if cb.Type != discord.CallbackTypePong || cb.Data != nil {
		t.Fatalf("expected bare pong, got %+v", cb)
	}
}

func TestDispatch_HelloWorld(t *testing.T) {
	d, _, _ := newDispatcher(t)
	in := &discord.Interaction{
		Type:   discord.InteractionTypeApplicationCommand,
		Data:   &discord.InteractionData{Name: "hello-world"},
		Member: &discord.GuildMember{User: &discord.User{Username: "Ada"}},
	}

	cb, err := d.Dispatch(context.Background(), in)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if cb.Data == nil || cb.Data.Content != "Hello, Ada" {
		t.Fatalf("unexpected callback %+v", cb)
	}
}

func TestDispatch_StartEnqueues(t *testing.T) {
	d, servers, q := newDispatcher(t)
	servers.Put(store.GameServer{ID: store.Key("foo", "guild-1"), Name: "foo", ResourceID: "/subscriptions/s/vm"})

	cb, err := d.Dispatch(context.Background(), controlInteraction("start", "foo"))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if cb.Data == nil || cb.Data.Content != "Starting VM foo..." {
		t.Fatalf("unexpected callback %+v", cb)
	}

	raw, err := q.Receive(context.Background())
	if err != nil || raw == nil {
		t.Fatalf("expected one enqueued message, got %v, %v", raw, err)
	}
	msg, err := queue.DecodeVMControlMessage(raw.Body)
	if err != nil {
		t.Fatalf("DecodeVMControlMessage: %v", err)
	}
	if msg.Action != queue.VMActionStart || msg.VMName != "foo" || msg.GuildID != "guild-1" || msg.FollowupToken != "tok-1" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if msg.MessageID == "" || msg.TraceParent == "" {
		t.Fatalf("message must carry dedup key and trace context: %+v", msg)
	}
	if q.Len() != 0 {
		t.Fatalf("expected exactly one message, %d remain", q.Len())
	}
}

func TestDispatch_StopEnqueues(t *testing.T) {
	d, servers, q := newDispatcher(t)
	servers.Put(store.GameServer{ID: store.Key("foo", "guild-1"), Name: "foo", ResourceID: "/subscriptions/s/vm"})

	cb, err := d.Dispatch(context.Background(), controlInteraction("stop", "foo"))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if cb.Data == nil || cb.Data.Content != "Stopping VM foo..." {
		t.Fatalf("unexpected callback %+v", cb)
	}

	raw, _ := q.Receive(context.Background())
	if raw == nil {
		t.Fatal("expected one enqueued message")
	}
	msg, err := queue.DecodeVMControlMessage(raw.Body)
	if err != nil {
		t.Fatalf("DecodeVMControlMessage: %v", err)
	}
	if msg.Action != queue.VMActionStop {
		t.Fatalf("expected stop action, got %q", msg.Action)
	}
}

func TestDispatch_UnknownServerSoftFails(t *testing.T) {
	d, _, q := newDispatcher(t)

	cb, err := d.Dispatch(context.Background(), controlInteraction("start", "foo"))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if cb.Data == nil || cb.Data.Content != "Server foo could not be found" {
		t.Fatalf("unexpected callback %+v", cb)
	}
	if q.Len() != 0 {
		t.Fatal("nothing may be enqueued for an unknown server")
	}
}

func TestDispatch_SchemaErrors(t *testing.T) {
	d, _, _ := newDispatcher(t)
	ctx := context.Background()

	_, err := d.Dispatch(ctx, &discord.Interaction{
		Type: discord.InteractionTypeApplicationCommand,
		Data: &discord.InteractionData{Name: "mystery"},
	})
	var unknownCmd *UnknownCommandError
	if !errors.As(err, &unknownCmd) || unknownCmd.Name != "mystery" {
		t.Fatalf("expected UnknownCommandError, got %v", err)
	}

	_, err = d.Dispatch(ctx, &discord.Interaction{
		Type: discord.InteractionTypeApplicationCommand,
		Data: &discord.InteractionData{
			Name: "azurebot",
			Options: []discord.ApplicationCommandOption{{
				Name: "network", Type: discord.OptionTypeSubCommandGroup,
				Options: []discord.ApplicationCommandOption{{Name: "start", Type: discord.OptionTypeSubCommand}},
			}},
		},
	})
	var unknownSub *UnknownSubcommandError
	if !errors.As(err, &unknownSub) {
		t.Fatalf("expected UnknownSubcommandError, got %v", err)
	}

	in := controlInteraction("restart", "foo")
	_, err = d.Dispatch(ctx, in)
	if !errors.As(err, &unknownSub) || unknownSub.Name != "restart" {
		t.Fatalf("expected UnknownSubcommandError for restart, got %v", err)
	}

	in = controlInteraction("start", "foo")
	in.Data.Options[0].Options[0].Options = nil
	_, err = d.Dispatch(ctx, in)
	var missing *MissingArgumentError
	if !errors.As(err, &missing) || missing.Argument != "name" {
		t.Fatalf("expected MissingArgumentError, got %v", err)
	}

	in = controlInteraction("start", "foo")
	in.Data.Options[0].Options[0].Options = append(in.Data.Options[0].Options[0].Options, discord.ApplicationCommandOption{
		Name: "name", Type: discord.OptionTypeString, Value: "bar",
	})
	_, err = d.Dispatch(ctx, in)
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingArgumentError for duplicate argument, got %v", err)
	}
}
