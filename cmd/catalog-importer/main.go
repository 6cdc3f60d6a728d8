package main

import (
	"context"
	"flag"
	"os"

	"github.com/tillworks/till/internal/platform/config"
	catalogimporter "github.com/tillworks/till/internal/tools/importer"
)

func main() {
	cfg, err := catalogimporter.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	if err := catalogimporter.Run(context.Background(), cfg, os.Stdout); err != nil {
		config.Exitf("Error: %v", err)
	}
}
