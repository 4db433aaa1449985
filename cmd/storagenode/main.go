// Command storagenode runs one node of the cluster: it loads the
// static topology and the node's own configuration, binds the HTTP
// listener, and serves until an interrupt or terminate signal starts a
// graceful shutdown (spec.md §6, §7).
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jkachika/galileo/internal/config"
	"github.com/jkachika/galileo/internal/node"
	"github.com/jkachika/galileo/internal/topology"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	entry := log.WithField("component", "storagenode")

	cfg := config.Load()

	if cfg.PidFile != "" {
		if err := os.WriteFile(cfg.PidFile, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
			entry.WithError(err).Warn("failed to write pid file")
		}
		defer os.Remove(cfg.PidFile)
	}

	network, err := topology.Load(cfg.TopologyDir)
	if err != nil {
		entry.WithError(err).Fatal("failed to load topology")
	}

	n, err := node.New(cfg, network, entry)
	if err != nil {
		entry.WithError(err).Fatal("failed to construct storage node")
	}
	n.Start()

	server := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.HTTPPort),
		Handler: n.Router(),
	}

	go func() {
		entry.WithField("addr", server.Addr).Info("listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			entry.WithError(err).Fatal("http server failed")
		}
	}()
	n.MarkOnline()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	entry.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		entry.WithError(err).Warn("http server shutdown did not complete cleanly")
	}
	n.Shutdown()
}
