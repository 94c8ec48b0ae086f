// Package worker drains the VM control queue. It is the slow half of the
// interaction flow: the gateway acknowledges within Discord's response
// budget, and this worker performs the control-plane action afterwards.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/juju/clock"
	"github.com/rs/zerolog"

	"azurebot/internal/queue"
	"azurebot/internal/store"
	"azurebot/internal/telemetry"
)

const defaultPollInterval = 10 * time.Second

// seenLimit bounds the duplicate-suppression set. Redeliveries arrive within
// the queue's visibility window, so a small window of recent IDs is enough.
const seenLimit = 1024

// VMController performs the actual control-plane action on a VM resource.
type VMController interface {
	Start(ctx context.Context, resourceID string) error
	Stop(ctx context.Context, resourceID string) error
}

// Notifier reports action completion back to the interaction that requested
// it, via its followup token.
type Notifier interface {
	EditOriginalResponse(ctx context.Context, applicationID, token, content string) error
}

type state int

const (
	stateIdle state = iota
	stateDraining
)

// Worker is the control queue consumer. Multiple instances may run against
// the same queue; the queue's visibility timeout arbitrates between them,
// and MessageID dedup absorbs redeliveries of work already done.
type Worker struct {
	Queue         queue.Receiver
	Servers       store.ServerStore
	VMs           VMController
	Notifier      Notifier
	ApplicationID string
	Clock         clock.Clock
	PollInterval  time.Duration
	Log           zerolog.Logger

	state     state
	seen      map[uint64]struct{}
	seenOrder []uint64
}

// Run polls the queue until ctx is cancelled. A single bad message never
// stops the loop.
func (w *Worker) Run(ctx context.Context) error {
	if w.Clock == nil {
		w.Clock = clock.WallClock
	}
	if w.PollInterval <= 0 {
		w.PollInterval = defaultPollInterval
	}

	w.Log.Info().Dur("poll_interval", w.PollInterval).Msg("vm control worker started")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		idle, err := w.runOnce(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			w.Log.Error().Err(err).Msg("failed to receive message")
			continue
		}

		if idle {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-w.Clock.After(w.PollInterval):
			}
		}
	}
}

// runOnce performs one receive cycle and reports whether the queue was empty.
func (w *Worker) runOnce(ctx context.Context) (idle bool, err error) {
	w.state = stateIdle
	raw, err := w.Queue.Receive(ctx)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return true, nil
	}

	w.state = stateDraining
	msg, err := queue.DecodeVMControlMessage(raw.Body)
	if err != nil {
		// Left undeleted: the visibility timeout redelivers it, and the
		// poison message surfaces in the queue's dead-letter tooling.
		w.Log.Error().Err(err).Str("queue_message_id", raw.MessageID).Msg("skipping undecodable message")
		return false, nil
	}

	log, done := telemetry.StartSpan(w.Log, "vm-control", msg.TraceParent)
	defer done()

	if w.isDuplicate(msg.MessageID) {
		log.Info().Str("message_id", msg.MessageID).Msg("duplicate delivery suppressed")
		return false, w.Queue.Delete(ctx, raw)
	}

	if err := w.handle(ctx, log, msg); err != nil {
		// Not deleted: redelivery retries transient control-plane failures.
		log.Error().Err(err).Str("vm", msg.VMName).Msg("vm control failed, leaving message for redelivery")
		return false, nil
	}

	w.markSeen(msg.MessageID)
	return false, w.Queue.Delete(ctx, raw)
}

func (w *Worker) handle(ctx context.Context, log zerolog.Logger, msg queue.VMControlMessage) error {
	server, err := w.Servers.Get(ctx, msg.VMName, msg.GuildID)
	if errors.Is(err, store.ErrNotFound) {
		// The registration disappeared between enqueue and drain. Tell the
		// user instead of retrying forever.
		log.Warn().Str("vm", msg.VMName).Msg("vm no longer registered")
		return w.notify(ctx, msg, fmt.Sprintf("Server %s could not be found", msg.VMName))
	}
	if err != nil {
		return fmt.Errorf("looking up server %q: %w", msg.VMName, err)
	}

	log.Info().Str("action", string(msg.Action)).Str("resource_id", server.ResourceID).Msg("applying vm control action")
	switch msg.Action {
	case queue.VMActionStart:
		err = w.VMs.Start(ctx, server.ResourceID)
	case queue.VMActionStop:
		err = w.VMs.Stop(ctx, server.ResourceID)
	}
	if err != nil {
		return fmt.Errorf("%s of %q: %w", msg.Action, server.ResourceID, err)
	}

	content := fmt.Sprintf("VM %s has been started", msg.VMName)
	if msg.Action == queue.VMActionStop {
		content = fmt.Sprintf("VM %s has been stopped", msg.VMName)
	}
	return w.notify(ctx, msg, content)
}

func (w *Worker) notify(ctx context.Context, msg queue.VMControlMessage, content string) error {
	if w.Notifier == nil {
		return nil
	}
	if err := w.Notifier.EditOriginalResponse(ctx, w.ApplicationID, msg.FollowupToken, content); err != nil {
		return fmt.Errorf("notifying completion: %w", err)
	}
	return nil
}

func (w *Worker) isDuplicate(messageID string) bool {
	if messageID == "" {
		return false
	}
	_, ok := w.seen[xxhash.Sum64String(messageID)]
	return ok
}

func (w *Worker) markSeen(messageID string) {
	if messageID == "" {
		return
	}
	if w.seen == nil {
		w.seen = make(map[uint64]struct{})
	}
	key := xxhash.Sum64String(messageID)
	if _, ok := w.seen[key]; ok {
		return
	}
	w.seen[key] = struct{}{}
	w.seenOrder = append(w.seenOrder, key)
	if len(w.seenOrder) > seenLimit {
		delete(w.seen, w.seenOrder[0])
		w.seenOrder = w.seenOrder[1:]
	}
}
