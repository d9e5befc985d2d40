/*
Bootstraps the ray-tracing engine from photon.toml, renders one
session and writes the tone-mapped result as a PNG.
*/
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/photon/engine"
	"github.com/spaghettifunk/photon/engine/config"
)

func main() {
	cfg, err := config.Load("photon.toml")
	if err != nil {
		panic(err)
	}

	eng, err := engine.New(cfg)
	if err != nil {
		panic(err)
	}

	if err := eng.Initialize(); err != nil {
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go func() {
		<-sigCh
		_ = eng.Shutdown()
	}()

	if err := eng.Run(); err != nil {
		panic(err)
	}

	if err := eng.Shutdown(); err != nil {
		panic(err)
	}
}
