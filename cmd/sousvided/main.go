package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ChristiaanHPutter/Skripsie/internal/handlers"
	"github.com/ChristiaanHPutter/Skripsie/internal/logger"
	"github.com/ChristiaanHPutter/Skripsie/internal/models"
	"github.com/ChristiaanHPutter/Skripsie/internal/repository"
	"github.com/ChristiaanHPutter/Skripsie/internal/sensor"
	"github.com/ChristiaanHPutter/Skripsie/internal/server"
	"github.com/ChristiaanHPutter/Skripsie/internal/service"

	"github.com/joho/godotenv"
	nats "github.com/nats-io/nats.go"
	"github.com/spf13/viper"
)

func main() {
	// .env feeds the environment overrides bound in loadConfig for local runs.
	_ = godotenv.Load()

	cfgErr := loadConfig()

	// The level comes from config, so the logger is built right after it.
	log := logger.Get(viper.GetString("log.level"))
	if cfgErr != nil {
		log.Fatalw("error reading config", "err", cfgErr)
	}

	// open DB
	db, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Fatalw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies
	repos := repository.NewRepository(db)

	rd, sim, closeSensor, err := buildSensor(log)
	if err != nil {
		log.Fatalw("failed to init sensor backend", "err", err)
	}
	defer closeSensor()

	hub := handlers.NewLinkHub(log)

	// The simulator doubles as the heater output stage so its baths respond
	// to the loop's drive. A remote backend leaves outputs unwired.
	var outputs service.Outputs
	if sim != nil {
		outputs = sim
	}

	loop := service.NewLoop(service.LoopConfig{
		SensorPoll:     viper.GetDuration("cooker.sensor-poll"),
		InputQuiet:     viper.GetDuration("cooker.input-quiet"),
		StatusInterval: viper.GetDuration("link.status-interval"),
	}, rd, outputs, logDisplay{log: log}, hub, repos.EventRepo, log)
	hub.AttachCore(loop)

	services := service.NewService(loop, repos)
	apiHandler := handlers.NewHandler(services, hub, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// start the control loop
	go loop.Run(ctx, viper.GetDuration("cooker.tick"))

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")

	viper.SetDefault("port", "8080")
	viper.SetDefault("log.level", logger.InfoLevel)
	viper.SetDefault("db.path", "sousvide.db")
	viper.SetDefault("cooker.tick", 250*time.Millisecond)
	viper.SetDefault("cooker.sensor-poll", 10*time.Second)
	viper.SetDefault("cooker.input-quiet", 5*time.Second)
	viper.SetDefault("link.status-interval", time.Second)
	viper.SetDefault("sensor.backend", "sim")
	viper.SetDefault("nats.url", nats.DefaultURL)
	viper.SetDefault("nats.subject", "cooker.probes")
	viper.SetDefault("nats.stale-after", 30*time.Second)

	_ = viper.BindEnv("port", "PORT")
	_ = viper.BindEnv("nats.url", "NATS_URL")

	if err := viper.ReadInConfig(); err != nil {
		// The defaults above cover a missing file; anything else is fatal.
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "sousvide.db")
		dbPath = "sousvide.db"
	}
	return repository.InitDB(dbPath)
}

// buildSensor selects the probe backend. The sim return is non-nil only for
// the simulated backend, where it also serves as the loop's output stage.
func buildSensor(log *logger.Logger) (sensor.Reader, *sensor.Sim, func(), error) {
	switch backend := viper.GetString("sensor.backend"); backend {
	case "sim", "":
		sim := sensor.NewSim()
		return sim, sim, func() {}, nil
	case "nats":
		nc, err := nats.Connect(viper.GetString("nats.url"))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect nats: %w", err)
		}
		remote, err := sensor.NewRemote(nc, viper.GetString("nats.subject"), viper.GetDuration("nats.stale-after"), log)
		if err != nil {
			nc.Close()
			return nil, nil, nil, err
		}
		return remote, nil, func() {
			remote.Close()
			nc.Close()
		}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown sensor backend %q", backend)
	}
}

// logDisplay stands in for the front panel on headless builds. Frames only
// arrive when something changed, so debug logging stays quiet at idle.
type logDisplay struct {
	log *logger.Logger
}

func (d logDisplay) Show(st models.CookerState) {
	d.log.Debugw("display_frame",
		"state", st.State,
		"mode", st.SettingMode,
		"selected", st.SelectedChamber,
	)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
