package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/resupply-planner/resupply/go/config"
	"github.com/resupply-planner/resupply/go/feed"
	"github.com/resupply-planner/resupply/go/ingest"
	"github.com/resupply-planner/resupply/go/logging"
	"github.com/resupply-planner/resupply/go/store"
	log "github.com/sirupsen/logrus"
)

// Config is the top-level configuration of the EDDN listener.
var Config = new(struct {
	Database      config.Database `group:"Database"`
	Relay         config.Relay    `group:"Relay"`
	Log           config.Logging  `group:"Logging"`
	MetricsListen string          `long:"metrics-listen" env:"RP_LISTENER_METRICS" default:":9090" description:"Prometheus metrics listen address"`
})

func main() {
	config.MustParse(Config)
	must(logging.Init(Config.Log, "logs/listener.log"), "initialising logging")

	// SIGINT / SIGTERM cancel the context; the subscriber observes it
	// between polls, drains the current frame, and exits the loop.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, Config.Database.DSN())
	must(err, "opening store")
	defer st.Close()
	must(st.EnsureSchema(ctx), "ensuring schema")

	go func() {
		var mux = http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(Config.MetricsListen, mux); err != nil {
			log.WithError(err).Error("metrics server failed")
		}
	}()

	var sub = &feed.Subscriber{
		Relay:   Config.Relay.URL,
		Timeout: Config.Relay.Timeout(),
		Router:  ingest.NewRouter(st, st),
	}
	must(sub.Run(ctx), "running subscriber")
	log.Info("goodbye")
}

func must(err error, msg string) {
	if err != nil {
		log.WithError(err).Fatal(msg)
	}
}
