package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/resupply-planner/resupply/go/bulkload"
	"github.com/resupply-planner/resupply/go/config"
	"github.com/resupply-planner/resupply/go/logging"
	"github.com/resupply-planner/resupply/go/store"
	log "github.com/sirupsen/logrus"
)

// Config is the bulk loader CLI configuration.
var Config = new(struct {
	Database config.Database `group:"Database"`
	Log      config.Logging  `group:"Logging"`
	DryRun   bool            `long:"dry-run" description:"Report counts without committing"`
	Limit    int             `long:"limit" value-name:"N" description:"Stop after N records"`

	Args struct {
		FilePath string `positional-arg-name:"file_path" required:"true" description:"Path to the systems.json.gz archive"`
	} `positional-args:"true" required:"true"`
})

func main() {
	config.MustParse(Config)
	must(logging.Init(Config.Log, "logs/import.log"), "initialising logging")

	// SIGINT / SIGTERM drain the current batch, then exit cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f, err := os.Open(Config.Args.FilePath)
	must(err, "opening archive")
	defer f.Close()

	st, err := store.Open(ctx, Config.Database.DSN())
	must(err, "opening store")
	defer st.Close()
	must(st.EnsureSchema(ctx), "ensuring schema")

	sum, err := bulkload.Import(ctx, f, st, bulkload.Options{
		DryRun: Config.DryRun,
		Limit:  Config.Limit,
	})
	log.WithFields(log.Fields{
		"processed": sum.Processed,
		"upserted":  sum.Upserted,
		"skipped":   sum.Skipped,
		"dryRun":    Config.DryRun,
	}).Info("import summary")
	must(err, "importing archive")
}

func must(err error, msg string) {
	if err != nil {
		log.WithError(err).Fatal(msg)
	}
}
