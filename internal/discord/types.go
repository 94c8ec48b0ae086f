package discord

type InteractionType int

const (
	InteractionTypePing               InteractionType = 1
	InteractionTypeApplicationCommand InteractionType = 2
)

type ApplicationCommandOptionType int

const (
	OptionTypeSubCommand      ApplicationCommandOptionType = 1
	OptionTypeSubCommandGroup ApplicationCommandOptionType = 2
	OptionTypeString          ApplicationCommandOptionType = 3
)

type InteractionCallbackType int

const (
	CallbackTypePong                     InteractionCallbackType = 1
	CallbackTypeChannelMessageWithSource InteractionCallbackType = 4
)

// Interaction is one incoming webhook event from Discord. It is constructed
// once per request from the verified request body and never mutated.
type Interaction struct {
	ID        string           `json:"id"`
	Type      InteractionType  `json:"type"`
	Token     string           `json:"token"`
	GuildID   string           `json:"guild_id"`
	ChannelID string           `json:"channel_id"`
	Data      *InteractionData `json:"data,omitempty"`
	Member    *GuildMember     `json:"member,omitempty"`
}

type InteractionData struct {
	ID      string                     `json:"id"`
	Name    string                     `json:"name"`
	Options []ApplicationCommandOption `json:"options,omitempty"`
}

// ApplicationCommandOption is one node of the command option tree. Group and
// subcommand nodes carry nested Options; leaf scalar nodes carry Value. The
// same shape is used when registering commands, where Description and
// Required are set instead of Value.
type ApplicationCommandOption struct {
	Name        string                       `json:"name"`
	Type        ApplicationCommandOptionType `json:"type"`
	Description string                       `json:"description,omitempty"`
	Required    bool                         `json:"required,omitempty"`
	Value       string                       `json:"value,omitempty"`
	Options     []ApplicationCommandOption   `json:"options,omitempty"`
}

type GuildMember struct {
	User  *User    `json:"user,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

type User struct {
	Username string `json:"username"`
}

type InteractionCallback struct {
	Type InteractionCallbackType  `json:"type"`
	Data *InteractionCallbackData `json:"data,omitempty"`
}

type InteractionCallbackData struct {
	Content string `json:"content"`
}

func Pong() *InteractionCallback {
	return &InteractionCallback{Type: CallbackTypePong}
}

func Message(content string) *InteractionCallback {
	return &InteractionCallback{
		Type: CallbackTypeChannelMessageWithSource,
		Data: &InteractionCallbackData{Content: content},
	}
}

type ApplicationCommandType int

const CommandTypeChatInput ApplicationCommandType = 1

// ApplicationCommand is a slash-command definition registered with Discord.
type ApplicationCommand struct {
	ID            string                     `json:"id,omitempty"`
	Type          ApplicationCommandType     `json:"type"`
	ApplicationID string                     `json:"application_id,omitempty"`
	GuildID       string                     `json:"guild_id,omitempty"`
	Name          string                     `json:"name"`
	Description   string                     `json:"description"`
	Options       []ApplicationCommandOption `json:"options,omitempty"`
}
