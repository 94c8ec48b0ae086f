package discord

// Commands returns the application command definitions the deployer
// registers with Discord. The option tree here must stay in sync with what
// the dispatcher accepts.
func Commands() map[string]ApplicationCommand {
	serverNameOption := ApplicationCommandOption{
		Name:        "name",
		Type:        OptionTypeString,
		Description: "The name of the server",
		Required:    true,
	}

	return map[string]ApplicationCommand{
		"hello-world": {
			Type:        CommandTypeChatInput,
			Name:        "hello-world",
			Description: "Says hello back to you",
		},
		"azurebot": {
			Type:        CommandTypeChatInput,
			Name:        "azurebot",
			Description: "Manage game servers",
			Options: []ApplicationCommandOption{
				{
					Name:        "server",
					Type:        OptionTypeSubCommandGroup,
					Description: "Control a game server VM",
					Options: []ApplicationCommandOption{
						{
							Name:        "start",
							Type:        OptionTypeSubCommand,
							Description: "Start a game server VM",
							Options:     []ApplicationCommandOption{serverNameOption},
						},
						{
							Name:        "stop",
							Type:        OptionTypeSubCommand,
							Description: "Stop a game server VM",
							Options:     []ApplicationCommandOption{serverNameOption},
						},
					},
				},
			},
		},
	}
}
