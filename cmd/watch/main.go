// Command watch is a terminal viewer for a running spyglass dashboard:
// it subscribes to the observation websocket and renders the stream
// live.
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	url := flag.String("url", "ws://localhost:9090/ws", "dashboard websocket URL")
	flag.Parse()

	p := tea.NewProgram(newWatchModel(*url), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "watch: %v\n", err)
		os.Exit(1)
	}
}
