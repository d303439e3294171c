package main

import (
	"log"

	"github.com/simpleviewinc/sv-auth-client/internal/demo"
)

func main() {
	cfg := demo.LoadConfig()

	application, err := demo.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
