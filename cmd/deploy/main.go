// Command deploy holds the operational tooling that runs next to the bot:
// certificate issuance, slash command registration, and local server
// registry maintenance.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"

	"azurebot/internal/acme"
	"azurebot/internal/arm"
	"azurebot/internal/auth"
	"azurebot/internal/discord"
	"azurebot/internal/dns"
	"azurebot/internal/keyvault"
	"azurebot/internal/logger"
	"azurebot/internal/store"
)

type globalOptions struct {
	LogLevel  string `long:"log-level" default:"info" description:"Log level"`
	LogFormat string `long:"log-format" default:"console" description:"Log format (console or json)"`
}

var opts globalOptions

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.CommandHandler = func(command flags.Commander, args []string) error {
		logger.Setup(logger.Config{Level: opts.LogLevel, Format: opts.LogFormat})
		return command.Execute(args)
	}

	must(parser.AddCommand("gen-cert",
		"Issue or renew the HTTPS certificate",
		"Runs the ACME DNS-01 flow against the configured directory, keeping the private key in Key Vault.",
		&genCertCommand{}))
	must(parser.AddCommand("update-command",
		"Register slash commands with Discord",
		"Pushes the application command definitions, either globally or for a single guild.",
		&updateCommandCommand{}))
	must(parser.AddCommand("auth-token",
		"Mint an admin bearer token",
		"Creates a JWT signed with the master secret for use against the bot's admin endpoints.",
		&authTokenCommand{}))
	must(parser.AddCommand("add-server",
		"Register a game server in the local database",
		"Inserts or updates one game server record in the local SQLite store used when Cosmos is not configured.",
		&addServerCommand{}))

	if _, err := parser.Parse(); err != nil {
		os.Exit(1)
	}
}

func must(_ *flags.Command, err error) {
	if err != nil {
		panic(err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

type genCertCommand struct {
	Zone          string   `long:"zone" required:"true" description:"DNS zone the certificate is issued under"`
	Subdomain     string   `long:"subdomain" description:"Subdomain within the zone (empty issues for the apex)"`
	Email         string   `long:"email" required:"true" description:"ACME account contact email"`
	Directory     string   `long:"directory" default:"https://acme-v02.api.letsencrypt.org/directory" description:"ACME directory URL"`
	KeyVaultName  string   `long:"key-vault-name" required:"true" description:"Key Vault name"`
	KeyVaultURL   string   `long:"key-vault-url" required:"true" description:"Key Vault URL, e.g. https://name.vault.azure.net"`
	ResourceGroup string   `long:"resource-group" required:"true" description:"Full resource ID of the resource group holding the DNS zone"`
	Format        string   `long:"format" default:"pkcs12" choice:"pem" choice:"pkcs12" description:"Certificate content type"`
	SANs          []string `long:"san" description:"Additional DNS names (repeatable)"`
	Nameserver    string   `long:"nameserver" description:"Nameserver for propagation checks (defaults to the system resolver)"`
}

func (c *genCertCommand) Execute(args []string) error {
	ctx, stop := signalContext()
	defer stop()

	credential, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return fmt.Errorf("acquiring azure credential: %w", err)
	}

	certs, err := keyvault.NewCertificateStore(c.KeyVaultURL, credential)
	if err != nil {
		return err
	}
	secrets, err := keyvault.NewSecretStore(c.KeyVaultURL, credential)
	if err != nil {
		return err
	}
	resolver, err := dns.NewResolver(c.Nameserver)
	if err != nil {
		return err
	}

	issuer := acme.NewIssuer(certs, secrets, arm.NewDeployer(credential, log.Logger), resolver, log.Logger)
	name, err := issuer.IssueHTTPSCertificate(ctx, acme.Options{
		ZoneName:        c.Zone,
		Subdomain:       c.Subdomain,
		AccountEmail:    c.Email,
		DirectoryURL:    c.Directory,
		KeyVaultName:    c.KeyVaultName,
		ResourceGroupID: c.ResourceGroup,
		Format:          acme.CertificateFormat(c.Format),
		AlternateNames:  c.SANs,
	})
	if err != nil {
		return err
	}

	log.Info().Str("certificate", name).Msg("certificate ready")
	return nil
}

type updateCommandCommand struct {
	ApplicationID string `long:"application-id" required:"true" description:"Discord application ID"`
	BotToken      string `long:"bot-token" env:"BOT_TOKEN" required:"true" description:"Discord bot token"`
	Guild         string `long:"guild" description:"Register for this guild only (instant propagation)"`
	Command       string `long:"command" description:"Register a single named command instead of all"`
}

func (c *updateCommandCommand) Execute(args []string) error {
	ctx, stop := signalContext()
	defer stop()

	client := &discord.Client{BotToken: c.BotToken, Log: log.Logger}

	commands := discord.Commands()
	if c.Command != "" {
		cmd, ok := commands[c.Command]
		if !ok {
			return fmt.Errorf("unknown command %q", c.Command)
		}
		commands = map[string]discord.ApplicationCommand{c.Command: cmd}
	}

	for name, cmd := range commands {
		var err error
		if c.Guild != "" {
			err = client.RegisterGuildCommand(ctx, c.ApplicationID, c.Guild, cmd)
		} else {
			err = client.RegisterCommand(ctx, c.ApplicationID, cmd)
		}
		if err != nil {
			return fmt.Errorf("registering %s: %w", name, err)
		}
		log.Info().Str("command", name).Str("guild", c.Guild).Msg("command registered")
	}
	return nil
}

type authTokenCommand struct {
	Secret  string `long:"secret" env:"MASTER_SECRET" required:"true" description:"Master secret shared with the bot"`
	Subject string `long:"subject" default:"deploy" description:"Token subject"`
}

func (c *authTokenCommand) Execute(args []string) error {
	token, err := auth.CreateToken(c.Subject, auth.DefaultTokenConfig(c.Secret))
	if err != nil {
		return fmt.Errorf("creating token: %w", err)
	}
	fmt.Println(token)
	return nil
}

type addServerCommand struct {
	Database   string `long:"db" default:"azurebot.db" description:"SQLite database path"`
	Guild      string `long:"guild" required:"true" description:"Guild the server belongs to"`
	Name       string `long:"name" required:"true" description:"Server name used in the start/stop commands"`
	Game       string `long:"game" required:"true" description:"Game running on the server"`
	ResourceID string `long:"resource-id" required:"true" description:"Full resource ID of the VM"`
	SKU        string `long:"sku" description:"Current VM SKU"`
}

func (c *addServerCommand) Execute(args []string) error {
	ctx, stop := signalContext()
	defer stop()

	db, err := store.NewSQLiteStore(c.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	err = db.Upsert(ctx, store.GameServer{
		Name:       c.Name,
		Game:       c.Game,
		ResourceID: c.ResourceID,
		CurrentSku: c.SKU,
	}, c.Guild)
	if err != nil {
		return fmt.Errorf("registering server: %w", err)
	}

	log.Info().Str("name", c.Name).Str("guild", c.Guild).Msg("server registered")
	return nil
}
