package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/rota/internal/backup"
	"github.com/dukerupert/rota/internal/database"
	"github.com/dukerupert/rota/internal/logging"
	"github.com/dukerupert/rota/internal/server"
)

func main() {
	logger := logging.Setup(os.Getenv("ROTA_LOG_LEVEL"))

	port := os.Getenv("ROTA_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("ROTA_DB_PATH")
	if dbPath == "" {
		dbPath = "rota.db"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	backupCfg := backup.Config{
		S3: backup.S3Config{
			Endpoint:  os.Getenv("ROTA_BACKUP_S3_ENDPOINT"),
			Bucket:    os.Getenv("ROTA_BACKUP_S3_BUCKET"),
			Region:    os.Getenv("ROTA_BACKUP_S3_REGION"),
			AccessKey: os.Getenv("ROTA_BACKUP_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("ROTA_BACKUP_S3_SECRET_KEY"),
		},
	}

	srv := server.New(db, backupCfg, logger)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Rota running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}
