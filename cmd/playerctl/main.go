package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/playerhub/internal/buildinfo"
	"github.com/dmitrijs2005/playerhub/internal/client/cli"
	"github.com/dmitrijs2005/playerhub/internal/client/config"
)

func main() {

	if len(os.Args) > 1 && os.Args[1] == "version" {
		buildinfo.PrintBuildData(os.Stdout)
		return
	}

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)

	if err != nil {
		fmt.Fprintf(os.Stderr, "playerctl: %v\n", err)
		os.Exit(1)
	}

	if err := app.Run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "playerctl: %v\n", err)
		os.Exit(1)
	}

}
