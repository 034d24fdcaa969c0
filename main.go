package main

import (
	"errors"
	"fmt"
	"os"

	_ "infra-cli/cmd"
	"infra-cli/cmd/root"
	"infra-cli/internal/logger"
	"infra-cli/services"
)

func main() {
	if err := root.RootCmd.Execute(); err != nil {
		if errors.Is(err, services.ErrCancelled) {
			os.Exit(0)
		}
		logger.Error(err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(0)
}
