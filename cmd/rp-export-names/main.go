package main

import (
	"bufio"
	"context"
	"os"
	"path/filepath"

	"github.com/resupply-planner/resupply/go/config"
	"github.com/resupply-planner/resupply/go/logging"
	"github.com/resupply-planner/resupply/go/store"
	log "github.com/sirupsen/logrus"
)

// Config is the name exporter configuration. The exporter streams every
// system name, in lexicographic order, into the cache file the
// autocomplete API loads at startup.
var Config = new(struct {
	Database config.Database `group:"Database"`
	Log      config.Logging  `group:"Logging"`
	Output   string          `long:"output" env:"RP_NAMES_FILE" default:"data/system_names.txt" description:"Output file path"`
})

func main() {
	config.MustParse(Config)
	must(logging.Init(Config.Log, ""), "initialising logging")

	var ctx = context.Background()
	st, err := store.Open(ctx, Config.Database.DSN())
	must(err, "opening store")
	defer st.Close()

	must(os.MkdirAll(filepath.Dir(Config.Output), 0o755), "creating output directory")
	f, err := os.Create(Config.Output)
	must(err, "creating output file")
	defer f.Close()

	var w = bufio.NewWriter(f)
	var total int
	err = st.StreamSystemNames(ctx, func(name string) error {
		if _, err := w.WriteString(name + "\n"); err != nil {
			return err
		}
		if total++; total%10_000 == 0 {
			log.WithField("systems", total).Info("export progress")
		}
		return nil
	})
	must(err, "streaming system names")
	must(w.Flush(), "flushing output")

	info, err := f.Stat()
	must(err, "stating output file")
	log.WithFields(log.Fields{
		"file":    Config.Output,
		"systems": total,
		"bytes":   info.Size(),
	}).Info("export complete")
}

func must(err error, msg string) {
	if err != nil {
		log.WithError(err).Fatal(msg)
	}
}
