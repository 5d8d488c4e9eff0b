package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"

	"releasewatch/internal/cache"
	"releasewatch/internal/clients/metadata"
	"releasewatch/internal/clients/notifications"
	"releasewatch/internal/config"
	"releasewatch/internal/core"
	"releasewatch/internal/database"
	"releasewatch/internal/database/models"
	"releasewatch/internal/handlers"
	"releasewatch/internal/utils"
)

const (
	appName    = "releasewatch"
	appVersion = "0.1.0"
	appAuthors = "The releasewatch developers"
	appYears   = "2026"
)

func printVersion() {
	fmt.Printf("%s %s\n", appName, appVersion)
	fmt.Println()
	fmt.Printf("Copyright (c) %s %s\n", appYears, appAuthors)
	fmt.Println()
	fmt.Println("This is free software; see the source for copying conditions.  There is NO")
	fmt.Println("warranty; not even for MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.")
}

func main() {
	configPath := flag.String("config", "config.yml", "Path to configuration file")
	version := flag.Bool("version", false, "Print the version and exit")
	daemon := flag.Bool("daemon", false, "Keep running and poll on the configured schedule")
	skipNotifications := flag.Bool("skip-notifications", false, "Detect changes without sending notifications")
	skipCache := flag.Bool("skip-cache", false, "Detect changes without updating the cache")
	skipMovies := flag.Bool("skip-movies", false, "Skip the configured movies")
	skipShows := flag.Bool("skip-shows", false, "Skip the configured shows")
	flag.Parse()

	if *version {
		printVersion()
		return
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	if *skipNotifications {
		cfg.Monitor.SkipNotifications = true
	}
	if *skipCache {
		cfg.Monitor.SkipCache = true
	}
	if *skipMovies {
		cfg.Monitor.SkipMovies = true
	}
	if *skipShows {
		cfg.Monitor.SkipShows = true
	}

	logger := utils.NewLogger(cfg.App.Debug)

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration:", err)
	}

	// Verify the credential up front; polling never starts with a bad key
	client, err := metadata.NewTMDBClient(cfg.TMDB.APIKey, cfg.TMDB.Language)
	if err != nil {
		logger.Fatal("Failed to create TMDB client:", err)
	}
	logger.Info("Authenticating with TMDB...")
	if err := client.Authenticate(context.Background()); err != nil {
		logger.Fatal("TMDB rejected the configured credential:", err)
	}

	store := cache.NewStore(cfg.App.DataPath)
	sender := newSender(cfg)

	monitor := core.NewMonitor(cfg, client, store, sender, logger)
	if key := cfg.Notifications.PushbulletAPIKey; key != "" {
		monitor.SetPusher(notifications.NewPushbulletClient(key))
	}

	if !*daemon {
		if err := monitor.RunOnce(context.Background()); err != nil {
			logger.Fatal("Poll pass failed:", err)
		}
		return
	}

	runDaemon(cfg, *configPath, monitor, logger)
}

// newSender picks the outbound mail transport: a local sendmail-style
// command when configured, SMTP otherwise.
func newSender(cfg *config.Config) core.Sender {
	if cmd := cfg.Email.SendmailCommand; cmd != "" {
		return notifications.NewSendmailSender(cmd, cfg.Email.From)
	}
	host := cfg.Email.SMTPHost
	if host == "" {
		host = "localhost"
	}
	return notifications.NewSMTPSender(host, cfg.Email.SMTPPort, cfg.Email.From)
}

func runDaemon(cfg *config.Config, configPath string, monitor *core.Monitor, logger *utils.Logger) {
	// Change history is only kept in daemon mode and only when a database
	// path is configured.
	var history *models.HistoryRepository
	if cfg.Database.Path != "" {
		db, err := database.NewSQLite(cfg.Database.Path)
		if err != nil {
			logger.Fatal("Failed to initialize database:", err)
		}
		defer db.Close()

		if err := database.RunMigrations(db, logger); err != nil {
			logger.Fatal("Failed to run migrations:", err)
		}

		history = models.NewHistoryRepository(db)
		monitor.SetHistory(history)
	}

	server := handlers.NewServer(cfg, monitor, history, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Server failed to start:", err)
		}
	}()

	if err := monitor.StartScheduler(); err != nil {
		logger.Fatal("Failed to start scheduler:", err)
	}

	go watchConfig(configPath, monitor, logger)

	logger.Info(appName, "started, polling on schedule", cfg.Daemon.Schedule)

	// Wait for interrupt
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	logger.Info("Shutting down...")
	monitor.Stop()
	server.Stop(ctx)
}

// watchConfig reloads the watched ID lists when the config file changes.
// Everything else still requires a restart.
func watchConfig(configPath string, monitor *core.Monitor, logger *utils.Logger) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("Config watcher unavailable:", err)
		return
	}
	defer watcher.Close()

	// Watch the directory; editors replace files instead of writing in place.
	if err := watcher.Add(filepath.Dir(configPath)); err != nil {
		logger.Error("Failed to watch config directory:", err)
		return
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(configPath) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			fresh, err := config.Load(configPath)
			if err != nil {
				logger.Error("Ignoring config reload:", err)
				continue
			}
			monitor.UpdateLists(fresh.Movies, fresh.Shows)
			logger.Info("Reloaded watch lists:", len(fresh.Movies), "movies,", len(fresh.Shows), "shows")
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Error("Config watcher error:", err)
		}
	}
}
