package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/2025-AI-Capstone/focus/fusion-server/internal/bridge"
	"github.com/2025-AI-Capstone/focus/fusion-server/internal/fusion"
	"github.com/2025-AI-Capstone/focus/fusion-server/internal/logger"
	"github.com/2025-AI-Capstone/focus/fusion-server/internal/metrics"
	"github.com/2025-AI-Capstone/focus/fusion-server/internal/webmonitor"
	"github.com/2025-AI-Capstone/focus/fusion-server/pkg/types"
)

var (
	// Command-line flags
	endpoint    = flag.String("endpoint", "ws://localhost:9090", "Perception bridge endpoint (ws:// or, with -transport mqtt, tcp://)")
	transport   = flag.String("transport", "ws", "Bridge transport (ws, mqtt)")
	legacy      = flag.Bool("legacy", false, "Subscribe the per-topic feeds instead of the combined topic")
	httpAddr    = flag.String("http", ":8090", "Monitor HTTP server address")
	metricsAddr = flag.String("metrics", ":9091", "Metrics server address")
	assetsDir   = flag.String("assets", "", "Optional web assets directory")
	paintFPS    = flag.Int("paint-fps", 30, "Overlay paint rate for the MJPEG stream")
	fallHold    = flag.Duration("fall-hold", fusion.DefaultFallHold, "Fall alert hold duration")
	mqttUser    = flag.String("mqtt-user", "", "MQTT username")
	mqttPass    = flag.String("mqtt-pass", "", "MQTT password")
	logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error, silent)")
	logColor    = flag.Bool("log-color", true, "Enable colored log output")
)

func main() {
	flag.Parse()

	// Initialize logger
	level, err := logger.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logger.Init(level, os.Stderr, *logColor)

	logger.Info("Main", "Fusion server starting...")
	logger.Info("Main", "Bridge endpoint: %s (%s)", *endpoint, *transport)
	logger.Info("Main", "Log level: %s", level)

	m := metrics.New()

	// The engine observes transport state, but the transport is built first;
	// route state changes through a late-bound pointer.
	var eng *fusion.Engine
	onState := func(s types.ConnState) {
		if eng != nil {
			eng.OnConnState(s)
		}
	}

	var tr bridge.Transport
	switch *transport {
	case "ws":
		tr = bridge.NewWSTransport(bridge.WSConfig{
			Endpoint:      *endpoint,
			DefaultTopic:  fusion.DefaultTopics().Combined,
			OnStateChange: onState,
		})
	case "mqtt":
		tr = bridge.NewMQTTTransport(bridge.MQTTConfig{
			Broker:        *endpoint,
			Username:      *mqttUser,
			Password:      *mqttPass,
			OnStateChange: onState,
		})
	default:
		log.Fatalf("Unknown transport: %s", *transport)
	}

	eng = fusion.NewEngine(fusion.Config{
		Legacy:   *legacy,
		FallHold: *fallHold,
	}, tr, m)

	if err := eng.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start fusion engine: %v", err)
	}

	// Metrics server
	go func() {
		logger.Info("Main", "Metrics server listening on %s", *metricsAddr)
		if err := m.StartServer(*metricsAddr); err != nil {
			logger.Error("Main", "Metrics server error: %v", err)
		}
	}()

	// Monitor server
	monitorCfg := webmonitor.DefaultConfig()
	monitorCfg.Addr = *httpAddr
	monitorCfg.AssetsDir = *assetsDir
	monitorCfg.PaintFPS = *paintFPS

	monitor := webmonitor.NewServer(monitorCfg, eng, m)
	monitor.Start()

	httpServer := &http.Server{
		Addr:    monitorCfg.Addr,
		Handler: monitor.Handler(),
	}
	go func() {
		logger.Info("Main", "Monitor listening on %s", monitorCfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Monitor server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Main", "Shutting down...")

	monitor.Stop()
	if err := eng.Close(); err != nil {
		logger.Warn("Main", "Engine close: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn("Main", "HTTP shutdown: %v", err)
	}

	logger.Info("Main", "Server stopped")
}
