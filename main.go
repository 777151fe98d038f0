package main

import (
	"net/http"

	"devsync/channel"
	"devsync/config"
	"devsync/pkg/logger"
	"devsync/router"
)

// The devsync binary runs the loopback sync relay: the shared broadcast
// channel that lets every editor process on this machine exchange
// presence and document updates. Editors degrade gracefully when it is
// not running; documents still load from their repository.
func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.Dev)
	defer logger.Log.Sync()

	relay := channel.NewRelay()
	go relay.Run()

	handler := router.Setup(relay, []byte(cfg.JWTSecret))

	logger.Sugar.Infof("sync relay listening on %s", cfg.RelayAddr)
	if err := http.ListenAndServe(cfg.RelayAddr, handler); err != nil {
		logger.Sugar.Fatalf("relay server failed: %v", err)
	}
}
