// Command timephone-provision creates one conversational agent per
// historical persona on the voice service and writes the year-to-agent
// bindings the phone reads at startup.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/timedial/timephone/internal/config"
	"github.com/timedial/timephone/internal/convai"
	"github.com/timedial/timephone/internal/provision"
)

func main() {
	os.Exit(runMain())
}

func runMain() int {
	_ = godotenv.Load()

	var (
		outPath string
		delay   time.Duration
	)
	flag.StringVar(&outPath, "out", ".env.agents", "File to write AGENT_ID_<year> bindings to")
	flag.DurationVar(&delay, "delay", 0, "Delay between creation requests (default: 500ms)")
	flag.Parse()

	cfg := config.Load()
	if cfg.ElevenLabsAPIKey == "" {
		fmt.Fprintln(os.Stderr, "ELEVENLABS_API_KEY is not set; add it to .env or the environment")
		return 2
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	client := convai.NewClient(
		convai.WithAPIKey(cfg.ElevenLabsAPIKey),
		convai.WithBaseURL(cfg.ServiceBaseURL),
		convai.WithLogger(logger),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results := provision.Run(ctx, client, provision.Personas, provision.Options{
		Logger: logger,
		Delay:  delay,
	})

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}

	n, err := provision.WriteEnvFile(outPath, results)
	if err != nil {
		fmt.Fprintln(os.Stderr, "write bindings:", err)
		return 1
	}

	if n > 0 {
		fmt.Printf("Wrote %d agent bindings to %s:\n\n", n, outPath)
		fmt.Println(strings.Join(provision.EnvLines(results), "\n"))
	} else {
		fmt.Println("No agents were created successfully.")
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "\n%d of %d personas failed; re-run to retry.\n", failed, len(results))
		return 1
	}
	return 0
}
