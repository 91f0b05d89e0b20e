package main

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"github.com/handiism/myzuka-downloader/internal/config"
	"github.com/handiism/myzuka-downloader/internal/output"
	"github.com/handiism/myzuka-downloader/internal/tui"
)

const (
	configPath = "myzuka.yaml"
	logPath    = "myzuka-tui.log"
)

func main() {
	_ = godotenv.Load()

	settings, err := config.Load(configPath)
	if err == nil {
		err = settings.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// the TUI owns the terminal, logs go to a file when debugging
	output.InitLogger(settings.Debug)
	var logOut io.Writer = io.Discard
	if settings.Debug > 0 {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	output.SetLogOutput(logOut)

	if err := tui.Run(settings); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
