package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/playerhub/internal/player"
	"github.com/dmitrijs2005/playerhub/internal/player/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := player.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}

}
