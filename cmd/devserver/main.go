package main

import (
	"log"

	"github.com/fanspace/fanspace-go/internal/config"
	"github.com/fanspace/fanspace-go/internal/devserver"
)

func main() {
	cfg := config.Load()

	srv, err := devserver.New(devserver.Config{
		DatabaseURL: cfg.DatabaseURL,
		JWTSecret:   cfg.JWTSecret,
	})
	if err != nil {
		log.Fatalf("Failed to start dev server: %v", err)
	}

	log.Printf("Dev server listening on :%s", cfg.Port)
	log.Fatal(srv.Listen(":" + cfg.Port))
}
