package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"azurebot/internal/auth"
	"azurebot/internal/config"
	"azurebot/internal/discord"
	"azurebot/internal/logger"
	"azurebot/internal/queue"
	"azurebot/internal/server"
	"azurebot/internal/store"
	"azurebot/internal/worker"
)

type controlQueue interface {
	queue.Publisher
	queue.Receiver
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("loading configuration")
	}
	logger.Setup(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	publicKey, err := auth.ParsePublicKey(cfg.AppPublicKey)
	if err != nil {
		log.Fatal().Err(err).Msg("parsing application public key")
	}

	needsAzure := cfg.CosmosURL != "" || cfg.QueueURL != ""
	var credential *azidentity.DefaultAzureCredential
	if needsAzure {
		credential, err = azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			log.Fatal().Err(err).Msg("acquiring azure credential")
		}
	}

	var servers store.ServerStore
	if cfg.CosmosURL != "" {
		servers, err = store.NewCosmosStore(cfg.CosmosURL, credential)
		if err != nil {
			log.Fatal().Err(err).Msg("connecting to cosmos")
		}
		log.Info().Str("endpoint", cfg.CosmosURL).Msg("using cosmos server store")
	} else {
		sqlite, err := store.NewSQLiteStore(cfg.DatabasePath)
		if err != nil {
			log.Fatal().Err(err).Msg("opening local database")
		}
		defer sqlite.Close()
		servers = sqlite
		log.Info().Str("path", cfg.DatabasePath).Msg("using local server store")
	}

	var controlQ controlQueue
	if cfg.QueueURL != "" {
		controlQ, err = queue.NewAzureQueue(cfg.QueueURL, credential)
		if err != nil {
			log.Fatal().Err(err).Msg("connecting to control queue")
		}
		log.Info().Str("endpoint", cfg.QueueURL).Msg("using azure control queue")
	} else {
		controlQ = queue.NewMemoryQueue()
		log.Warn().Msg("QUEUE_URL not set, using in-process control queue")
	}

	var vms worker.VMController
	if needsAzure {
		vms = worker.NewAzureVMController(credential)
	} else {
		vms = loggingVMController{}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := &worker.Worker{
		Queue:         controlQ,
		Servers:       servers,
		VMs:           vms,
		Notifier:      &discord.Client{Log: log.Logger},
		ApplicationID: cfg.ApplicationID,
		PollInterval:  cfg.PollInterval,
		Log:           log.Logger,
	}
	go func() {
		if err := w.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("vm control worker stopped")
		}
	}()

	gin.SetMode(cfg.GinMode)
	router := server.NewRouter(server.Deps{
		PublicKey:   publicKey,
		Servers:     servers,
		Queue:       controlQ,
		TokenConfig: auth.DefaultTokenConfig(cfg.MasterSecret),
		Log:         log.Logger,
	})

	log.Info().Int("port", cfg.Port).Msg("interaction gateway listening")
	if err := server.RunContext(ctx, cfg, router); err != nil {
		log.Fatal().Err(err).Msg("gateway stopped")
	}
	log.Info().Msg("shutdown complete")
}

// loggingVMController stands in for the compute control plane when no Azure
// credential is configured, so the full interaction flow stays exercisable
// locally.
type loggingVMController struct{}

func (loggingVMController) Start(ctx context.Context, resourceID string) error {
	log.Info().Str("resource_id", resourceID).Msg("start requested (no-op controller)")
	return nil
}

func (loggingVMController) Stop(ctx context.Context, resourceID string) error {
	log.Info().Str("resource_id", resourceID).Msg("stop requested (no-op controller)")
	return nil
}
