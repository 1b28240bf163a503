// Command server runs the restaurant auth HTTP API.
package main

import (
	"context"
	"log"
	"os"

	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/config"
)

func main() {
	app, err := server.NewApp(config.LoadConfig())
	if err != nil {
		log.Printf("startup: %v", err)
		os.Exit(1)
	}

	app.Run(context.Background())
}
