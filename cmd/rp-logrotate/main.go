package main

import (
	"time"

	"github.com/resupply-planner/resupply/go/config"
	"github.com/resupply-planner/resupply/go/logging"
	log "github.com/sirupsen/logrus"
)

// Config is the log rotation cron entry point's configuration.
var Config = new(struct {
	Log config.Logging `group:"Logging"`
	Dir string         `long:"dir" default:"logs" description:"Directory holding rotated log files"`
})

func main() {
	config.MustParse(Config)
	must(logging.Init(Config.Log, ""), "initialising logging")

	removed, err := logging.Prune(Config.Dir, Config.Log.RetentionDays, time.Now())
	must(err, "pruning log files")
	log.WithFields(log.Fields{
		"dir":       Config.Dir,
		"removed":   removed,
		"retention": Config.Log.RetentionDays,
	}).Info("log rotation complete")
}

func must(err error, msg string) {
	if err != nil {
		log.WithError(err).Fatal(msg)
	}
}
