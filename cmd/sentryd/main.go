// Command sentryd runs the monitoring agent: it loads client settings
// from a config file (and matching environment variables), opens the
// Redis transport, binds the local TCP/UDP result sockets, and runs
// until SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sentryd/sentryd/internal/agent"
	"github.com/sentryd/sentryd/internal/events"
	"github.com/sentryd/sentryd/internal/extension"
	"github.com/sentryd/sentryd/internal/otelx"
	"github.com/sentryd/sentryd/internal/redact"
	"github.com/sentryd/sentryd/internal/result"
	"github.com/sentryd/sentryd/internal/settings"
	"github.com/sentryd/sentryd/internal/socket"
	"github.com/sentryd/sentryd/internal/subprocess"
	"github.com/sentryd/sentryd/internal/transport/redisbus"
)

const version = "0.1.0"

func main() {
	configPath := pflag.String("config", "./sentryd.yaml", "path to the client config file")
	redisAddr := pflag.String("redis-addr", "127.0.0.1:6379", "Redis transport address")
	otlpEndpoint := pflag.String("otlp-endpoint", "", "OTLP gRPC collector endpoint (empty uses a stdout exporter)")
	logLevel := pflag.String("log-level", "info", "log level: debug, info, warn, or error")
	testMode := pflag.Bool("test-mode", false, "run standalone checks on a short fixed interval with no splay")
	pflag.Parse()

	v := viper.New()
	v.SetConfigFile(*configPath)
	v.SetDefault("client.safe_mode", false)
	v.SetDefault("client.socket.bind", "127.0.0.1")
	v.SetDefault("client.socket.port", 3030)
	v.SetEnvPrefix("SENTRYD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "sentryd: read config: %v\n", err)
		os.Exit(1)
	}

	store := settings.New(v)
	if err := store.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "sentryd: invalid config: %v\n", err)
		os.Exit(1)
	}

	log := events.NewWithLevel(store.ClientName(), os.Stdout, events.ParseLevel(*logLevel))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bus, err := redisbus.New(ctx, *redisAddr, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sentryd: connect redis: %v\n", err)
		os.Exit(1)
	}

	endpoint := *otlpEndpoint
	if endpoint == "" {
		endpoint = v.GetString("telemetry.otlp_endpoint")
	}
	telemetryCfg := otelx.ConfigFromEndpoint(store.ClientName(), version, endpoint)
	tracer, err := otelx.NewTracer(ctx, telemetryCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sentryd: init tracer: %v\n", err)
		os.Exit(1)
	}
	metrics, err := otelx.NewMetrics(ctx, telemetryCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sentryd: init metrics: %v\n", err)
		os.Exit(1)
	}
	otelx.SetGlobalProviders(tracer, metrics)

	registry := extension.NewRegistry()
	extension.RegisterBuiltins(registry)

	publisher := result.New(bus, store.ClientName(), store.Signature(), log)
	socketServer := socket.New(store.SocketBind(), store.SocketPort(), log)

	a := agent.NewAgent(agent.Config{
		Settings:     store,
		Transport:    bus,
		Registry:     registry,
		Subprocess:   subprocess.New(),
		SocketBinder: socketServer,
		Publisher:    publisher,
		Redactor:     redact.Redact,
		Log:          log,
		Tracer:       tracer,
		Metrics:      metrics,
		Version:      version,
		TestMode:     *testMode,
	})

	if err := a.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "sentryd: start: %v\n", err)
		os.Exit(1)
	}

	a.WatchSignals()
	<-a.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := tracer.Shutdown(shutdownCtx); err != nil {
		log.Warn("tracer_shutdown_error", "error", err.Error())
	}
	if err := metrics.Shutdown(shutdownCtx); err != nil {
		log.Warn("metrics_shutdown_error", "error", err.Error())
	}
}
