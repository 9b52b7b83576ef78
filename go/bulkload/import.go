// Package bulkload streams a gzip-compressed JSON array of systems from
// a cold-start archive into the store, without materialising the array.
package bulkload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/resupply-planner/resupply/go/store"
	log "github.com/sirupsen/logrus"
)

// DefaultBatchSize is how many records are flushed per bulk upsert.
const DefaultBatchSize = 1000

// progressEvery is the record interval of the periodic progress log.
const progressEvery = 1_000_000

// SystemUpserter is the slice of the store the loader needs.
type SystemUpserter interface {
	BulkUpsertSystems(ctx context.Context, records []store.SystemRecord) (int64, error)
}

// Options configure one import run.
type Options struct {
	BatchSize int
	DryRun    bool
	// Limit stops after N records when > 0.
	Limit int
}

// Summary reports what an import run did.
type Summary struct {
	Processed int64
	Upserted  int64
	Skipped   int64
}

// archiveRecord is one element of the systems archive.
type archiveRecord struct {
	ID64   int64  `json:"id64"`
	Name   string `json:"name"`
	Coords *struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
		Z *float64 `json:"z"`
	} `json:"coords"`
	UpdateTime     string `json:"updateTime"`
	RequiresPermit bool   `json:"requiresPermit"`
}

// Import decodes the archive from |r| and bulk-upserts it in batches.
// Cancelling |ctx| drains the current batch and returns cleanly.
func Import(ctx context.Context, r io.Reader, st SystemUpserter, opts Options) (Summary, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	gz, err := gzip.NewReader(r)
	if err != nil {
		return Summary{}, fmt.Errorf("opening gzip stream: %w", err)
	}
	defer gz.Close()

	var dec = json.NewDecoder(gz)
	if tok, err := dec.Token(); err != nil {
		return Summary{}, fmt.Errorf("reading archive: %w", err)
	} else if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return Summary{}, fmt.Errorf("archive is not a JSON array (got %v)", tok)
	}

	var sum Summary
	var batch = make([]store.SystemRecord, 0, opts.BatchSize)

	var flush = func() error {
		if len(batch) == 0 {
			return nil
		}
		if opts.DryRun {
			log.WithField("records", len(batch)).Info("[dry run] would upsert batch")
			sum.Upserted += int64(len(batch))
			batch = batch[:0]
			return nil
		}
		affected, err := st.BulkUpsertSystems(ctx, batch)
		if err != nil {
			return err
		}
		sum.Upserted += affected
		log.WithFields(log.Fields{
			"processed": sum.Processed,
			"batch":     len(batch),
			"affected":  affected,
		}).Debug("flushed batch")
		batch = batch[:0]
		return nil
	}

	for dec.More() {
		if ctx.Err() != nil {
			log.Info("shutdown requested, draining current batch")
			break
		}
		if opts.Limit > 0 && sum.Processed >= int64(opts.Limit) {
			log.WithField("limit", opts.Limit).Info("reached record limit")
			break
		}

		var rec archiveRecord
		if err = dec.Decode(&rec); err != nil {
			return sum, fmt.Errorf("decoding record %d: %w", sum.Processed+1, err)
		}
		sum.Processed++
		if sum.Processed%progressEvery == 0 {
			log.WithField("processed", sum.Processed).Info("import progress")
		}

		record, ok := convert(rec)
		if !ok {
			log.WithFields(log.Fields{"record": sum.Processed, "id64": rec.ID64}).
				Warn("skipping incomplete record")
			sum.Skipped++
			continue
		}

		batch = append(batch, record)
		if len(batch) >= opts.BatchSize {
			if err = flush(); err != nil {
				return sum, err
			}
		}
	}

	if err = flush(); err != nil {
		return sum, err
	}
	return sum, nil
}

// convert validates an archive record and maps it to an upsert record.
func convert(rec archiveRecord) (store.SystemRecord, bool) {
	if rec.ID64 == 0 || rec.Name == "" || rec.Coords == nil || rec.UpdateTime == "" {
		return store.SystemRecord{}, false
	}
	ts, err := ParseArchiveTime(rec.UpdateTime)
	if err != nil {
		log.WithError(err).Warn("skipping record with bad timestamp")
		return store.SystemRecord{}, false
	}

	var name = rec.Name
	var permit = rec.RequiresPermit
	return store.SystemRecord{
		SystemAddress:  rec.ID64,
		Name:           &name,
		X:              rec.Coords.X,
		Y:              rec.Coords.Y,
		Z:              rec.Coords.Z,
		RequiresPermit: &permit,
		UpdatedAt:      ts,
	}, true
}
