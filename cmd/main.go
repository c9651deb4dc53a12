package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smart_envi/internal/coordinator"
	"smart_envi/internal/envi"
	"smart_envi/internal/handlers"
	"smart_envi/internal/logger"
	"smart_envi/internal/repository"
	"smart_envi/internal/repository/db"
	"smart_envi/internal/server"
	"smart_envi/internal/service"

	"github.com/spf13/viper"

	_ "smart_envi/docs"
)

func main() {
	// load config.yml before anything that reads it
	if err := loadConfig(); err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}

	// init logger
	log := logger.Get(logLevel())

	// open DB
	sqlDB, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Fatalw("failed to close sqlite", "err", cerr)
		}
	}()

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// wire dependencies
	repos := repository.NewRepository(sqlDB)

	client := newEnviClient(log.Named("envi"))

	// validate credentials and account access before serving anything
	if err := client.Authenticate(ctx); err != nil {
		log.Fatalw("cloud authentication failed", "err", err)
	}
	ids, err := client.FetchAllDeviceIDs(ctx)
	if err != nil {
		log.Fatalw("device discovery failed", "err", err)
	}
	log.Infow("cloud account verified", "devices", len(ids))

	coord := coordinator.New(client, repos.Snapshots, repos.Events, pollInterval(), log.Named("poller"))
	coord.Seed(ctx)
	go coord.Run(ctx)

	services := service.NewService(coord, client, repos, log,
		viper.GetString("auth.signing_key"),
		viper.GetDuration("auth.token_ttl"))
	apiHandler := handlers.NewHandler(services, log.Named("http"))

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

func logLevel() string {
	if lvl := viper.GetString("log.level"); lvl != "" {
		return lvl
	}
	return logger.InfoLevel
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "bridge.db")
		dbPath = "bridge.db"
	}
	return db.InitDB(dbPath)
}

// newEnviClient builds the cloud API client from configuration.
func newEnviClient(log *logger.Logger) *envi.Client {
	return envi.NewClient(enviConfig(), log)
}

// enviConfig assembles the client configuration, including the retry policy.
// Credentials come from the environment when set, so they can stay out of the
// config file.
func enviConfig() envi.Config {
	username := os.Getenv("ENVI_USERNAME")
	if username == "" {
		username = viper.GetString("envi.username")
	}
	password := os.Getenv("ENVI_PASSWORD")
	if password == "" {
		password = viper.GetString("envi.password")
	}

	return envi.Config{
		BaseURL:           viper.GetString("envi.base_url"),
		Username:          username,
		Password:          password,
		Timeout:           viper.GetDuration("envi.timeout"),
		MaxRetries:        viper.GetInt("envi.max_retries"),
		InitialRetryDelay: viper.GetDuration("envi.initial_retry_delay"),
		MaxRetryDelay:     viper.GetDuration("envi.max_retry_delay"),
		ExpiryBuffer:      viper.GetDuration("envi.token_expiry_buffer"),
	}
}

func pollInterval() time.Duration {
	if d := viper.GetDuration("poll.interval"); d > 0 {
		return d
	}
	return coordinator.DefaultInterval
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
