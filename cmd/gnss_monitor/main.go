package main

import (
	"log"

	"github.com/spf13/pflag"

	"github.com/relabs-tech/gnss_computer/internal/app"
	"github.com/relabs-tech/gnss_computer/internal/config"
)

func main() {
	configPath := pflag.StringP("config", "c", "gnss_config.txt", "Path to configuration file")
	pflag.Parse()

	log.Println("starting gnss-computer monitor (NMEA → MQTT)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunMonitor(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
