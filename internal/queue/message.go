package queue

import (
	"encoding/json"
	"fmt"
)

// VMAction is the requested VM state change. It serializes by name to keep
// queue payloads readable.
type VMAction string

const (
	VMActionStart VMAction = "Start"
	VMActionStop  VMAction = "Stop"
)

func (a VMAction) Valid() bool {
	return a == VMActionStart || a == VMActionStop
}

// VMControlMessage is the queued VM control job. MessageID is a dedup key:
// the queue may redeliver, and the worker drops messages it has already
// acted on. FollowupToken lets the worker edit the original interaction
// reply once the action completes.
type VMControlMessage struct {
	MessageID     string   `json:"MessageId"`
	FollowupToken string   `json:"FollowupToken"`
	GuildID       string   `json:"GuildId"`
	VMName        string   `json:"VmName"`
	Action        VMAction `json:"Action"`
	TraceParent   string   `json:"TraceParent"`
}

func (m VMControlMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

func DecodeVMControlMessage(body []byte) (VMControlMessage, error) {
	var msg VMControlMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return VMControlMessage{}, fmt.Errorf("decoding control message: %w", err)
	}
	if !msg.Action.Valid() {
		return VMControlMessage{}, fmt.Errorf("decoding control message: unknown action %q", msg.Action)
	}
	return msg, nil
}
