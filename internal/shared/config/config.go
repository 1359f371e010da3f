package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	Env          string
	Persistence  bool
	DataPath     string
	AutosaveCron string
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env file not found, using system environment variables")
	}

	cfg := &Config{
		Port:         os.Getenv("PORT"),
		Env:          os.Getenv("ENV"),
		Persistence:  os.Getenv("KPI_PERSISTENCE") == "true",
		DataPath:     os.Getenv("KPI_DATA_PATH"),
		AutosaveCron: os.Getenv("KPI_AUTOSAVE_CRON"),
	}

	// Default values
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.DataPath == "" {
		cfg.DataPath = "data/kpi-dataset.json"
	}
	if cfg.AutosaveCron == "" {
		cfg.AutosaveCron = "@every 5m"
	}

	return cfg
}
