package main

import (
	"log"

	"github.com/mkrenek/adwatch/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("adwatch failed to start: %v", err)
	}
}
