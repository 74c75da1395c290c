// Package alert sends SOS notifications over the realtime connection.
//
// Sending is fire-and-forget: success means the frame was handed to an Open
// transport, not that the server received it.
package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/prakhar362/Ocean-Sentinal/cmd/identity/ids"
	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/location"
	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/realtime"
	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/telemetry"
	v1 "github.com/prakhar362/Ocean-Sentinal/shared/contracts/realtime/v1"
)

// MaxMessageRunes bounds the trimmed alert text.
const MaxMessageRunes = 200

// Connection is the part of realtime.Manager the dispatcher needs.
type Connection interface {
	State() realtime.State
	Send(ctx context.Context, frame []byte) error
}

// Receipt identifies a sent alert in logs.
type Receipt struct {
	AlertID string    `json:"alert_id"`
	SentAt  time.Time `json:"sent_at"`
}

// Dispatcher builds and sends SOS alerts.
type Dispatcher struct {
	conn    Connection
	loc     location.Source
	log     *slog.Logger
	metrics *telemetry.Metrics
	now     func() time.Time
}

// NewDispatcher constructs a Dispatcher. loc may be nil when callers always
// pass a position to SendAlert.
func NewDispatcher(conn Connection, loc location.Source, log *slog.Logger, metrics *telemetry.Metrics) *Dispatcher {
	if log == nil {
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	if loc == nil {
		loc = location.Unavailable{}
	}
	return &Dispatcher{
		conn:    conn,
		loc:     loc,
		log:     log,
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SendAlert sends one sos_notification frame.
//
// Preconditions are checked in order: connection Open, location present and
// valid, message non-empty after trimming, message at most MaxMessageRunes.
func (d *Dispatcher) SendAlert(ctx context.Context, message string, loc *location.Point) (Receipt, error) {
	if d.conn.State() != realtime.StateOpen {
		return d.fail(ErrConnectionUnavailable, "connection_unavailable")
	}
	if loc == nil || !loc.Valid() {
		return d.fail(ErrLocationUnavailable, "location_unavailable")
	}
	msg := strings.TrimSpace(message)
	if msg == "" {
		return d.fail(ErrEmptyMessage, "empty_message")
	}
	if utf8.RuneCountInString(msg) > MaxMessageRunes {
		return d.fail(ErrMessageTooLong, "message_too_long")
	}

	frame, err := v1.Encode(v1.TypeSOSNotification, v1.SOSNotificationPayload{
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Msg:       msg,
	})
	if err != nil {
		return d.fail(err, "encode_error")
	}

	if err := d.conn.Send(ctx, frame); err != nil {
		if errors.Is(err, realtime.ErrNotOpen) {
			return d.fail(ErrConnectionUnavailable, "connection_unavailable")
		}
		d.log.Warn("alert.send.fail", "err", err)
		return d.fail(fmt.Errorf("send sos: %w", err), "send_error")
	}

	now := d.now()
	r := Receipt{AlertID: ids.Prefixed("alert", now), SentAt: now}
	d.metrics.Alert("sent")
	d.log.Info("alert.sent", "alert_id", r.AlertID, "lat", loc.Latitude, "lon", loc.Longitude, "msg_len", utf8.RuneCountInString(msg))
	return r, nil
}

// SendCurrent sends an alert at the position reported by the location source.
// The connection is still checked first.
func (d *Dispatcher) SendCurrent(ctx context.Context, message string) (Receipt, error) {
	if d.conn.State() != realtime.StateOpen {
		return d.fail(ErrConnectionUnavailable, "connection_unavailable")
	}
	p, err := d.loc.Current(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Receipt{}, ctxErr
		}
		d.log.Info("alert.location.unavailable", "err", err)
		return d.fail(ErrLocationUnavailable, "location_unavailable")
	}
	return d.SendAlert(ctx, message, &p)
}

func (d *Dispatcher) fail(err error, result string) (Receipt, error) {
	d.metrics.Alert(result)
	return Receipt{}, err
}
