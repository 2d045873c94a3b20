package main

import (
	"os"
	"os/signal"

	"github.com/patrikhermansson/rann/cmd"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// main is the entry point of the application.
// Log levels come from the RANN_LOG environment variable (see core.ConfigureLogging).
// It starts a goroutine to listen for interrupt signals and executes the main command.
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// This block sets up a go routine to listen for an interrupt signal which will immediately exit the program
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt)
	go listenForInterrupt(stopChan)

	// Program entry point
	if err := cmd.Execute(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("rann failed")
	}
}

// listenForInterrupt listens for an interrupt signal and exits the program when it is received.
// It takes a channel of os.Signal as a parameter.
func listenForInterrupt(stopChan chan os.Signal) {
	<-stopChan
	log.Fatal().Msg("Interrupt signal received. Exiting...")
}
