package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gatekeeper/internal/admin"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server"
	"github.com/dmitrijs2005/gatekeeper/internal/server/config"
)

func main() {
	var configFile string

	open := func(ctx context.Context) (*server.Stores, error) {
		var args []string
		if configFile != "" {
			args = []string{"-config", configFile}
		}
		cfg, err := config.LoadConfig(args)
		if err != nil {
			return nil, err
		}
		return server.OpenStores(ctx, cfg.Storage, logging.Nop())
	}

	root := admin.NewRootCommand(open, os.Stdin, os.Stdout)
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to JSON config file")

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
