// Package feed maintains the durable ZeroMQ subscription to the EDDN
// relay and drives frames through the ingest router, strictly serially:
// no frame is taken from the socket until the prior frame's transaction
// has committed.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/klauspost/compress/zlib"
	zmq "github.com/pebbe/zmq4"
	"github.com/resupply-planner/resupply/go/ingest"
	log "github.com/sirupsen/logrus"
)

// reportPeriod is the wall-clock interval of the health report, aligned
// to the quarter-hour.
const reportPeriod = 15 * time.Minute

// errorBackoff is slept after a frame fails outside the freshness and
// parse paths, so a persistent database fault cannot hot-spin the loop.
const errorBackoff = time.Second

// Subscriber connects to one relay URL and pumps frames until the
// context is cancelled. The transport reconnects transparently; a
// receive timeout is an idle loop iteration, not an error.
type Subscriber struct {
	Relay   string
	Timeout time.Duration
	Router  *ingest.Router

	processed int64
	accepted  int64
	ignored   int64
}

// Run executes the subscription loop. It returns nil on shutdown.
func (s *Subscriber) Run(ctx context.Context) error {
	sub, err := zmq.NewSocket(zmq.SUB)
	if err != nil {
		return err
	}
	defer sub.Close()

	if err = sub.SetSubscribe(""); err != nil {
		return err
	}
	// The poll deadline keeps the loop responsive to shutdown between
	// frames.
	if err = sub.SetRcvtimeo(s.Timeout); err != nil {
		return err
	}
	if err = sub.Connect(s.Relay); err != nil {
		return err
	}
	log.WithField("relay", s.Relay).Info("connected to EDDN relay")

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	var nextReport = time.Now().Truncate(reportPeriod).Add(reportPeriod)

	for {
		if ctx.Err() != nil {
			log.Info("listener shutting down")
			return nil
		}
		_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)

		if now := time.Now(); !now.Before(nextReport) {
			s.reportHealth()
			nextReport = now.Truncate(reportPeriod).Add(reportPeriod)
		}

		raw, err := sub.RecvBytes(0)
		if err != nil {
			if zmq.AsErrno(err) == zmq.Errno(syscall.EAGAIN) {
				// Receive timed out. The transport handles any needed
				// reconnection in the background.
				continue
			}
			log.WithError(err).Error("relay receive failed")
			time.Sleep(errorBackoff)
			continue
		}

		s.processFrame(ctx, raw)
	}
}

func (s *Subscriber) processFrame(ctx context.Context, raw []byte) {
	decoded, err := inflate(raw)
	if err != nil {
		log.WithError(err).Warn("dropping frame with bad zlib payload")
		frameErrors.Inc()
		return
	}

	s.processed++
	framesProcessed.Inc()

	result, err := s.Router.Route(ctx, decoded)
	switch {
	case err == nil && result == ingest.Accepted:
		s.accepted++
		framesAccepted.Inc()
	case err == nil:
		s.ignored++
		framesIgnored.Inc()
	case isMalformed(err):
		log.WithError(err).Warn("dropping malformed frame")
		frameErrors.Inc()
	default:
		// Database fault on a single frame: roll-back already happened
		// inside the store; log and back off before the next frame.
		log.WithField("err", err).Errorf("frame processing failed: %+v", err)
		frameErrors.Inc()
		time.Sleep(errorBackoff)
	}
}

func (s *Subscriber) reportHealth() {
	log.WithFields(log.Fields{
		"processed": s.processed,
		"accepted":  s.accepted,
		"ignored":   s.ignored,
	}).Info("health report")
	s.processed, s.accepted, s.ignored = 0, 0, 0
}

func inflate(raw []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func isMalformed(err error) bool {
	var syntax *json.SyntaxError
	var unmarshal *json.UnmarshalTypeError
	return errors.As(err, &syntax) || errors.As(err, &unmarshal)
}
