package main

import (
	"github.com/joho/godotenv"

	"venueadmin/shared/go/config"
)

// loadConfig reads config/local.env when present, then the environment.
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load("config/local.env")
	return config.Load()
}
