package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/spigell/job-recommender/cmd"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
