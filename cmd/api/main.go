package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/gridport/internal/config"
	"github.com/MrJamesThe3rd/gridport/internal/database"
	gridportHttp "github.com/MrJamesThe3rd/gridport/internal/http"
	statusHandler "github.com/MrJamesThe3rd/gridport/internal/http/status"
	"github.com/MrJamesThe3rd/gridport/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(context.Background(), cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	statusH := statusHandler.NewHandler(store.NewStatusStore(db))

	router := gridportHttp.New(statusH)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "port", port)

	if err := http.ListenAndServe(port, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
