package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/wipchat/internal/client"
	"github.com/jask/wipchat/internal/config"
	"github.com/jask/wipchat/internal/logging"
	"github.com/jask/wipchat/internal/prefs"
	"github.com/jask/wipchat/internal/tui"
	"github.com/jask/wipchat/internal/widgets"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	closeLog, err := logging.Setup(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer closeLog()

	backend := client.New(cfg.Backend.URL, time.Duration(cfg.Backend.TimeoutSeconds)*time.Second)
	widgets.RegisterAll(backend)

	favorites, err := prefs.LoadFavorites()
	if err != nil {
		log.Fatalf("favorites: %v", err)
	}

	p := tea.NewProgram(tui.New(ctx, backend, favorites), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}
}
