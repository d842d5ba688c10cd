package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/jask/wipchat/internal/config"
	"github.com/jask/wipchat/internal/database"
	"github.com/jask/wipchat/internal/database/repository"
	"github.com/jask/wipchat/internal/llm"
	"github.com/jask/wipchat/internal/logging"
	"github.com/jask/wipchat/internal/secrets"
	"github.com/jask/wipchat/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if len(os.Args) > 1 && os.Args[1] == "key" {
		runKeyCommand(os.Args[2:])
		return
	}

	closeLog, err := logging.Setup(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer closeLog()

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		log.Fatalf("mkdir db dir: %v", err)
	}
	if err := database.RunMigrations(cfg.Database.Path, "internal/database/migrations"); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	events := repository.NewEventRepo(db)

	provider, err := llm.NewOpenAIProvider(resolveAPIKey(cfg), cfg.LLM.Model, cfg.LLM.BaseURL)
	if err != nil {
		log.Fatalf("llm provider: %v", err)
	}

	orc := server.NewOrchestrator(provider, server.DemoTools(events), server.DefaultManifests())
	srv := server.New(orc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("wipd listening on %s\n", cfg.Server.Listen)
	if err := srv.ListenAndServe(ctx, cfg.Server.Listen); err != nil {
		log.Fatalf("server: %v", err)
	}
}

// resolveAPIKey checks env first, then the local key store, then config.
func resolveAPIKey(cfg config.Config) string {
	if env := strings.TrimSpace(cfg.LLM.APIKeyEnv); env != "" {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	if store, err := secrets.Open(); err == nil {
		if k, err := store.Get(cfg.LLM.Provider); err == nil {
			return k
		}
	}
	return strings.TrimSpace(cfg.LLM.APIKey)
}

func runKeyCommand(args []string) {
	usage := func() {
		fmt.Fprintln(os.Stderr, "usage: wipd key set <provider> <key> | wipd key delete <provider>")
		os.Exit(2)
	}
	if len(args) < 2 {
		usage()
	}
	store, err := secrets.Open()
	if err != nil {
		log.Fatalf("key store: %v", err)
	}
	switch args[0] {
	case "set":
		if len(args) != 3 {
			usage()
		}
		if err := store.Set(args[1], args[2]); err != nil {
			log.Fatalf("store key: %v", err)
		}
		fmt.Printf("stored key for %s\n", args[1])
	case "delete":
		if err := store.Delete(args[1]); err != nil {
			log.Fatalf("delete key: %v", err)
		}
		fmt.Printf("deleted key for %s\n", args[1])
	default:
		usage()
	}
}
