package main

import (
	"context"
	"log"

	"github.com/cloudchat-app/cloudchat/internal/app"
	"github.com/cloudchat-app/cloudchat/internal/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	a, err := app.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	a.Run(ctx)

}
