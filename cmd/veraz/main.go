package main

import (
	"github.com/joho/godotenv"

	"github.com/RyanBlaney/sonido-veraz/cmd"
)

func main() {
	// VERAZ_* overrides may also come from a local .env file
	_ = godotenv.Load()

	cmd.Execute()
}
