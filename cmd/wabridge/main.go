package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vkick/wabridge/pkg/alerts"
	"github.com/vkick/wabridge/pkg/bus"
	"github.com/vkick/wabridge/pkg/config"
	"github.com/vkick/wabridge/pkg/contacts"
	"github.com/vkick/wabridge/pkg/cron"
	"github.com/vkick/wabridge/pkg/httpapi"
	"github.com/vkick/wabridge/pkg/logger"
	"github.com/vkick/wabridge/pkg/relay"
	"github.com/vkick/wabridge/pkg/storage"
	"github.com/vkick/wabridge/pkg/voice"
	"github.com/vkick/wabridge/pkg/wa"
)

const version = "0.1.0"

func main() {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "serve":
		serveCommand()
	case "console":
		consoleCommand()
	case "token":
		tokenCommand(os.Args[2:])
	case "migrate-config":
		migrateConfigCommand()
	case "migrate-data":
		migrateDataCommand()
	case "export-data":
		outputDir := "./export"
		if len(os.Args) > 2 {
			outputDir = os.Args[2]
		}
		exportDataCommand(outputDir)
	case "version":
		fmt.Printf("wabridge v%s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("WaBridge - WhatsApp to HTTP bridge")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  wabridge serve                Start the bridge (default)")
	fmt.Println("  wabridge console              Interactive console against a running bridge")
	fmt.Println("  wabridge token                Print the API token, generating one if needed")
	fmt.Println("  wabridge token rotate         Replace the API token with a fresh one")
	fmt.Println("  wabridge migrate-config       Move a plaintext config.json into the encrypted store")
	fmt.Println("  wabridge migrate-data         Migrate contacts and cron jobs between storage backends")
	fmt.Println("  wabridge export-data [dir]    Export contacts and cron jobs as JSON")
	fmt.Println("  wabridge version              Show version info")
}

// getConfigPath returns the config store target. Empty means the
// default location under the user's home directory.
func getConfigPath() string {
	return os.Getenv("WABRIDGE_CONFIG_DB")
}

func serveCommand() {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		fmt.Printf("❌ Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger.SetLevel(cfg.Logging.Level)
	logger.SetJSON(cfg.Logging.JSON)
	logger.InfoCF("main", "WaBridge starting", map[string]interface{}{
		"version": version,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storeCfg := storage.DefaultConfig(cfg.Storage.Type)
	storeCfg.DatabaseURL = cfg.Storage.DatabaseURL
	storeCfg.SSLEnabled = cfg.Storage.SSLEnabled
	storeCfg.FilePath = cfg.Storage.FilePath
	if storeCfg.FilePath == "" {
		storeCfg.FilePath = cfg.WorkspacePath()
	}

	store, err := storage.NewStorage(storeCfg)
	if err != nil {
		logger.ErrorCF("main", "Storage init failed", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}
	if err := store.Connect(ctx); err != nil {
		logger.ErrorCF("main", "Storage connect failed", map[string]interface{}{
			"type":  storeCfg.Type,
			"error": err.Error(),
		})
		os.Exit(1)
	}

	msgBus := bus.New()
	buffer := relay.NewBuffer(relay.DefaultCapacity)

	client := wa.NewClient(wa.ClientConfig{
		StorePath:      cfg.SessionStorePath(),
		ShowTerminalQR: cfg.WhatsApp.ShowTerminalQR,
	})
	if cfg.Voice.Enabled {
		transcriber := voice.NewTranscriber(voice.TranscriberConfig{
			Binary:         cfg.Voice.Binary,
			ModelPath:      cfg.Voice.ModelPath,
			Language:       cfg.Voice.Language,
			TimeoutSeconds: cfg.Voice.TimeoutSeconds,
		})
		if transcriber.IsAvailable() {
			client.SetTranscriber(transcriber)
			logger.InfoC("main", "Voice transcription enabled")
		} else {
			logger.WarnC("main", "Voice transcription configured but binary or model missing, voice notes relay without text")
		}
	}

	bridge := wa.NewController(client, buffer, msgBus, wa.ControllerConfig{})
	bridge.Start()

	tracker := contacts.NewTracker(store.Contacts(), msgBus)
	go tracker.Run(ctx)

	scheduler := cron.NewService(store.Cron(), func(ctx context.Context, to, message string) error {
		_, err := bridge.Send(ctx, to, message)
		return err
	})
	scheduler.Start(ctx)

	if cfg.Alerts.Telegram.Enabled {
		notifier, err := alerts.NewNotifier(alerts.Config{
			Enabled: true,
			Token:   cfg.Alerts.Telegram.Token,
			ChatID:  cfg.Alerts.Telegram.ChatID,
		}, msgBus)
		if err != nil {
			logger.WarnCF("main", "Telegram alerts unavailable", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			go notifier.Run(ctx)
		}
	}

	api := httpapi.NewServer(httpapi.Config{
		Host:  cfg.Gateway.Host,
		Port:  cfg.Gateway.Port,
		Token: cfg.Gateway.Token,
	}, bridge, buffer, store.Contacts(), scheduler, msgBus)
	if err := api.Start(ctx); err != nil {
		logger.ErrorCF("main", "API server failed to start", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	logger.InfoCF("main", "Bridge ready", map[string]interface{}{
		"addr": fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port),
	})

	<-ctx.Done()
	logger.InfoC("main", "Shutting down")

	// Shutdown order matters: stop accepting HTTP work, then tear the
	// session down, then release storage.
	api.Stop()
	bridge.Stop()
	client.Close()
	if err := store.Close(); err != nil {
		logger.WarnCF("main", "Storage close failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func tokenCommand(args []string) {
	configPath := getConfigPath()
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("❌ Error loading config: %v\n", err)
		os.Exit(1)
	}

	rotate := len(args) > 0 && args[0] == "rotate"
	if rotate {
		token, err := cfg.RotateGatewayToken()
		if err != nil {
			fmt.Printf("❌ Error rotating token: %v\n", err)
			os.Exit(1)
		}
		if err := config.SaveConfig(configPath, cfg); err != nil {
			fmt.Printf("❌ Error saving config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("✅ API token rotated")
		fmt.Printf("   %s\n", token)
		return
	}

	token, generated, err := cfg.EnsureGatewayToken()
	if err != nil {
		fmt.Printf("❌ Error generating token: %v\n", err)
		os.Exit(1)
	}
	if generated {
		if err := config.SaveConfig(configPath, cfg); err != nil {
			fmt.Printf("❌ Error saving config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("✅ API token generated")
	}
	fmt.Printf("   %s\n", token)
}
