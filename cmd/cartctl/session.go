package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/cart"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/storage/local"
)

// session — открытая локальная корзина на время одной команды.
type session struct {
	storage     *local.PebbleStorage
	store       *cart.Store
	registry    *prometheus.Registry
	metrics     *metrics.CartMetrics
	logger      *log.Entry
	metricsFile string
}

func openSession(opts globalOptions) (*session, error) {
	dir := filepath.Join(opts.dataDir, "cart")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	storage, err := local.OpenPebble(dir)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	cartMetrics := metrics.NewCartMetricsWithRegisterer(registry)
	logger := log.WithField("component", "cartctl")

	return &session{
		storage:     storage,
		store:       cart.NewStore(storage, cart.WithLogger(logger), cart.WithRecorder(cartMetrics)),
		registry:    registry,
		metrics:     cartMetrics,
		logger:      logger,
		metricsFile: opts.metricsFile,
	}, nil
}

func (s *session) close() {
	if s.metricsFile != "" {
		if err := prometheus.WriteToTextfile(s.metricsFile, s.registry); err != nil {
			s.logger.WithError(err).Warn("failed to write metrics file")
		}
	}
	if err := s.storage.Close(); err != nil {
		s.logger.WithError(err).Warn("failed to close local cart storage")
	}
}
