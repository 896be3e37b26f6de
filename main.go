package main

import (
	"choch_detector/cmd/choch/app"
	"choch_detector/pkg/log"
)

func main() {
	logConfig := log.DefaultLogConfig()
	logConfig.LogDir = "logs"
	logConfig.Level = "info"

	log.InitLoggerWithConfig(logConfig)
	log.Info("CHoCH detector starting")

	a := app.NewApp()
	if err := a.Run(); err != nil {
		log.Fatalf("Failed to run application: %v", err)
	}

	log.Info("CHoCH detector stopped")
}
