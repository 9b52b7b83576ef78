package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/resupply-planner/resupply/go/config"
	"github.com/resupply-planner/resupply/go/logging"
	"github.com/resupply-planner/resupply/go/names"
	log "github.com/sirupsen/logrus"
)

// Config is the top-level configuration of the autocomplete API server.
var Config = new(struct {
	Log       config.Logging `group:"Logging"`
	NamesFile string         `long:"names-file" env:"RP_NAMES_FILE" default:"data/system_names.txt" description:"Sorted system-names cache file"`
	Listen    string         `long:"listen" env:"RP_API_LISTEN" default:":8000" description:"HTTP listen address"`
})

func main() {
	config.MustParse(Config)
	must(logging.Init(Config.Log, "logs/api.log"), "initialising logging")

	ix, err := names.Load(Config.NamesFile)
	must(err, "loading system names")

	var mux = http.NewServeMux()
	mux.Handle("/", names.NewAPI(ix))
	mux.Handle("/metrics", promhttp.Handler())

	var srv = &http.Server{Addr: Config.Listen, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithFields(log.Fields{"listen": Config.Listen, "systems": ix.Len()}).
		Info("serving autocomplete API")
	if err = srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		must(err, "serving HTTP")
	}
	log.Info("goodbye")
}

func must(err error, msg string) {
	if err != nil {
		log.WithError(err).Fatal(msg)
	}
}
