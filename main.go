package main

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"appforge/client"
	"appforge/export"
	"appforge/mockagent"
	"appforge/tui"
)

func setLogLevel(levelStr string, out *os.File) {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default to info
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func main() {
	configPath := "config.toml"
	demo := false
	for _, arg := range os.Args[1:] {
		switch arg {
		case "--demo":
			demo = true
		default:
			configPath = arg
		}
	}

	cfg := Config{LogLevel: "info"}
	if demo {
		cfg.AccessToken = "demo-token"
	} else {
		loaded, err := LoadConfig(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", configPath, err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// the TUI owns the terminal, so logs go to a file
	logFile, err := os.OpenFile("appforge.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	setLogLevel(cfg.LogLevel, logFile)
	slog.Info("log level", "level", cfg.LogLevel)

	if demo {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start demo backend: %v\n", err)
			os.Exit(1)
		}
		backend := mockagent.New(cfg.AccessToken, nil)
		go http.Serve(listener, backend)
		cfg.ServerURL = "http://" + listener.Addr().String()
		slog.Info("demo backend running", "url", cfg.ServerURL)
	}

	api := client.New(cfg.ServerURL, cfg.AccessToken)
	var archiver *export.Archiver
	if cfg.ArchiveDir != "" {
		archiver = export.NewArchiver(cfg.ArchiveDir)
	}

	model := tui.New(api, archiver)
	runner := model.Runner()

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// stop reading any still-open streams before exiting
	runner.Shutdown()
	slog.Info("exited")
}
