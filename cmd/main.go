package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"luckyroll/internal/address"
	"luckyroll/internal/config"
	"luckyroll/internal/handlers"
	"luckyroll/internal/metrics"
	"luckyroll/internal/models"
	"luckyroll/internal/oracle"
	"luckyroll/internal/services"
	"luckyroll/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/joho/godotenv"
	"gopkg.in/urfave/cli.v1"
)

var configFlag = cli.StringFlag{
	Name:  "config, c",
	Value: "luckyroll.toml",
	Usage: "path to the TOML configuration file",
}

func main() {
	app := cli.NewApp()
	app.Name = "luckyroll"
	app.Usage = "oracle-seeded prize lottery"
	app.Commands = []cli.Command{
		{
			Name:   "serve",
			Usage:  "run the lottery HTTP service",
			Flags:  []cli.Flag{configFlag},
			Action: serve,
		},
		{
			Name:   "init-config",
			Usage:  "write a default configuration file",
			Flags:  []cli.Flag{configFlag},
			Action: initConfig,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(c *cli.Context) error {
	path := c.String("config")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := config.WriteDefault(path); err != nil {
		return err
	}
	fmt.Println("Wrote", path)
	return nil
}

func serve(c *cli.Context) error {
	// 1. Environment and configuration
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	validator := address.HexValidator{}
	if err := cfg.Validate(validator); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// 2. Logging
	var logOut io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	defer logger.Init("luckyroll", cfg.Verbose, false, logOut).Close()

	// 3. State store
	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// 4. Round service
	queue := oracle.NewQueue(cfg.Outbox.Limit)
	roundService := services.NewRoundService(storage.NewStore(db), validator, queue,
		services.WithMetrics(metrics.Round()))
	if err := ensureInstantiated(roundService, cfg, validator); err != nil {
		return err
	}

	// 5. HTTP surface
	httpHandler := handlers.NewHTTPHandler(roundService, queue, validator, time.Now)
	r := gin.Default()
	httpHandler.RegisterRoutes(r)

	srv := &http.Server{Addr: cfg.ListenAddress, Handler: r}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Shutdown: %v", err)
		}
	}()

	// 6. Run the server
	logger.Infof("Server starting on %s", cfg.ListenAddress)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to run server: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

// ensureInstantiated opens the first round on an empty data directory. The
// owner is fixed at that point; later config changes cannot move it.
func ensureInstantiated(svc *services.RoundService, cfg *config.Config, v address.Validator) error {
	ownerAddr, err := v.Validate(cfg.Owner)
	if err != nil {
		return err
	}
	current, err := svc.Owner()
	switch {
	case err == nil:
		if current != ownerAddr {
			logger.Warningf("Configured owner %s ignored, round is owned by %s", ownerAddr.Hex(), current.Hex())
		}
		return nil
	case !errors.Is(err, services.ErrNotInstantiated):
		return err
	}

	start, end, err := cfg.Round.Window()
	if err != nil {
		return err
	}
	_, err = svc.Instantiate(models.Call{Sender: ownerAddr, Time: time.Now()}, services.RoundParams{
		Oracle:    cfg.Round.Oracle,
		TimeStart: start,
		TimeEnd:   end,
	})
	return err
}
