package main

import (
	"flag"
	"fmt"
	"os"

	"flowgate/cmd/console/ui"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	deviceID := flag.String("device-id", "", "Gateway device id to operate")
	flag.Parse()

	if *deviceID == "" {
		fmt.Fprintln(os.Stderr, "usage: console --device-id <gateway id>")
		os.Exit(2)
	}

	p := tea.NewProgram(ui.NewRootModel(*deviceID), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "console error:", err)
		os.Exit(1)
	}
}
