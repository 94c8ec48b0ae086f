// Package dispatch routes verified interactions through the slash-command
// tree: root command, subcommand group, subcommand, then leaf arguments.
// Each level validates shape before descending.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"azurebot/internal/discord"
	"azurebot/internal/queue"
	"azurebot/internal/store"
	"azurebot/internal/telemetry"
)

type Dispatcher struct {
	Servers store.ServerStore
	Queue   queue.Publisher
	Log     zerolog.Logger
}

// Dispatch walks the interaction's command tree and returns the immediate
// callback. Slow VM work is enqueued, never performed inline: Discord expects
// the webhook response within a few seconds, so the worker finishes the job
// and edits the reply through the followup token.
func (d *Dispatcher) Dispatch(ctx context.Context, interaction *discord.Interaction) (*discord.InteractionCallback, error) {
	if interaction.Type == discord.InteractionTypePing {
		return discord.Pong(), nil
	}
	if interaction.Data == nil {
		return nil, &UnknownCommandError{}
	}

	switch interaction.Data.Name {
	case "hello-world":
		return discord.Message("Hello, " + username(interaction)), nil
	case "azurebot":
		return d.dispatchAzureBot(ctx, interaction, interaction.Data.Options)
	default:
		return nil, &UnknownCommandError{Name: interaction.Data.Name}
	}
}

func (d *Dispatcher) dispatchAzureBot(ctx context.Context, interaction *discord.Interaction, options []discord.ApplicationCommandOption) (*discord.InteractionCallback, error) {
	group, ok := single(options)
	if !ok || group.Name != "server" || group.Type != discord.OptionTypeSubCommandGroup {
		return nil, &UnknownSubcommandError{Command: "azurebot", Name: optionName(options)}
	}
	return d.dispatchServer(ctx, interaction, group.Options)
}

func (d *Dispatcher) dispatchServer(ctx context.Context, interaction *discord.Interaction, options []discord.ApplicationCommandOption) (*discord.InteractionCallback, error) {
	sub, ok := single(options)
	if !ok || sub.Type != discord.OptionTypeSubCommand {
		return nil, &UnknownSubcommandError{Command: "azurebot server", Name: optionName(options)}
	}

	switch sub.Name {
	case "start":
		return d.dispatchControl(ctx, interaction, sub.Options, queue.VMActionStart)
	case "stop":
		return d.dispatchControl(ctx, interaction, sub.Options, queue.VMActionStop)
	default:
		return nil, &UnknownSubcommandError{Command: "azurebot server", Name: sub.Name}
	}
}

func (d *Dispatcher) dispatchControl(ctx context.Context, interaction *discord.Interaction, options []discord.ApplicationCommandOption, action queue.VMAction) (*discord.InteractionCallback, error) {
	name, err := stringArgument(options, "name", "azurebot server "+actionVerb(action))
	if err != nil {
		return nil, err
	}

	server, err := d.Servers.Get(ctx, name, interaction.GuildID)
	if errors.Is(err, store.ErrNotFound) {
		return discord.Message(fmt.Sprintf("Server %s could not be found", name)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up server %q: %w", name, err)
	}

	traceParent, ok := telemetry.FromContext(ctx)
	if !ok {
		traceParent = telemetry.NewTraceParent()
	}

	msg := queue.VMControlMessage{
		MessageID:     uuid.NewString(),
		FollowupToken: interaction.Token,
		GuildID:       interaction.GuildID,
		VMName:        name,
		Action:        action,
		TraceParent:   traceParent,
	}
	if err := d.Queue.Publish(ctx, msg); err != nil {
		return nil, fmt.Errorf("enqueueing %s for %q: %w", action, name, err)
	}

	d.Log.Info().
		Str("action", string(action)).
		Str("vm", name).
		Str("resource_id", server.ResourceID).
		Str("message_id", msg.MessageID).
		Msg("vm control enqueued")

	switch action {
	case queue.VMActionStart:
		return discord.Message(fmt.Sprintf("Starting VM %s...", name)), nil
	default:
		return discord.Message(fmt.Sprintf("Stopping VM %s...", name)), nil
	}
}

// stringArgument returns the value of the exactly-once string option named
// name. Missing and duplicate are both schema defects.
func stringArgument(options []discord.ApplicationCommandOption, name, command string) (string, error) {
	var value string
	found := 0
	for _, opt := range options {
		if opt.Name == name && opt.Type == discord.OptionTypeString {
			value = opt.Value
			found++
		}
	}
	if found != 1 {
		return "", &MissingArgumentError{Command: command, Argument: name}
	}
	return value, nil
}

func single(options []discord.ApplicationCommandOption) (discord.ApplicationCommandOption, bool) {
	if len(options) != 1 {
		return discord.ApplicationCommandOption{}, false
	}
	return options[0], true
}

func optionName(options []discord.ApplicationCommandOption) string {
	if len(options) == 0 {
		return ""
	}
	return options[0].Name
}

func actionVerb(action queue.VMAction) string {
	if action == queue.VMActionStart {
		return "start"
	}
	return "stop"
}

func username(interaction *discord.Interaction) string {
	if interaction.Member == nil || interaction.Member.User == nil {
		return ""
	}
	return interaction.Member.User.Username
}
