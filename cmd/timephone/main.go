// Command timephone runs the time-travel phone in the terminal: dial a
// four-digit year and hold a live voice conversation with the historical
// figure who answers.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/timedial/timephone/internal/audio"
	"github.com/timedial/timephone/internal/call"
	"github.com/timedial/timephone/internal/config"
	"github.com/timedial/timephone/internal/convai"
	"github.com/timedial/timephone/internal/directory"
	"github.com/timedial/timephone/internal/history"
	"github.com/timedial/timephone/internal/tui"
)

func main() {
	os.Exit(runMain())
}

func runMain() int {
	_ = godotenv.Load()
	_ = godotenv.Load(".env.agents")

	var logPath string
	flag.StringVar(&logPath, "log-file", "", "Log file path (default: TIMEPHONE_LOG_FILE or timephone.log)")
	flag.Parse()

	cfg := config.Load()
	if logPath == "" {
		logPath = cfg.LogPath
	}

	// The terminal UI owns the screen, so logs go to a file.
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open log file:", err)
		return 2
	}
	defer logFile.Close()
	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: cfg.LogLevel}))

	dir := directory.New(cfg.AgentIDs)

	hist, err := history.Open(cfg.HistoryDBPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open call history:", err)
		return 2
	}
	defer hist.Close()

	speaker, err := audio.NewSpeaker()
	if err != nil {
		fmt.Fprintln(os.Stderr, "init audio output:", err)
		return 2
	}
	defer speaker.Close()

	client := convai.NewClient(
		convai.WithBaseURL(cfg.ServiceBaseURL),
		convai.WithLogger(logger),
	)
	dialer := convai.NewDialer(client, speaker, logger)
	mic := audio.NewCaptureSource(logger)

	ctrl := call.New(dir, dialer, mic,
		call.WithLogger(logger),
		call.WithRecorder(history.NewRecorder(hist, logger)),
	)

	model := tui.New(ctrl, dir, hist)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "run ui:", err)
		return 1
	}
	ctrl.EndCall()
	return 0
}
