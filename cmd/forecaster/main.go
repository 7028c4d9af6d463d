package main

import (
	"os"

	"github.com/wonny/forecaster/cmd/forecaster/commands"
)

// main is the entry point for the forecaster CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/forecaster [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
