package main

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jaminalder/tictactoe-replay/internal/logger"
	"github.com/jaminalder/tictactoe-replay/internal/tui"
	"github.com/spf13/pflag"
)

var (
	logFile  string
	logLevel = "debug"
)

func init() {
	pflag.StringVar(&logFile, "log-file", "", "append debug logs to this file")
	pflag.StringVar(&logLevel, "log-level", logLevel, "debug, info, warn or error")
}

func main() {
	pflag.Parse()

	var w io.Writer = io.Discard
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		defer f.Close()
		w = f
	}

	p := tea.NewProgram(tui.New(logger.New(w, logLevel, "text")))
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
