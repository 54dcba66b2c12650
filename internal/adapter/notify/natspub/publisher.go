// Package natspub publishes room events to NATS so other services can follow
// duels without holding a websocket.
package natspub

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"duelarena/internal/domain/duel"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const DefaultPrefix = "duel"

// Connect dials NATS with reconnect handling that logs through logger.
func Connect(url string, logger zerolog.Logger) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("duelarena"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(10*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("disconnected from nats")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("reconnected to nats")
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			logger.Info().Msg("nats connection closed")
		}),
	)
}

type TurnMessage struct {
	Room       string    `json:"room"`
	Turn       int       `json:"turn"`
	Action1    string    `json:"p1_action"`
	Action2    string    `json:"p2_action"`
	Finished   bool      `json:"finished"`
	Winner     int       `json:"winner"`
	ResolvedAt time.Time `json:"resolved_at"`
}

type ChangeMessage struct {
	Room   string `json:"room"`
	Reason string `json:"reason"`
}

type LogMessage struct {
	Room string `json:"room"`
	Text string `json:"text"`
}

// Publisher is a ports.Notifier. Publish failures are logged and dropped; the
// duel itself never depends on the bus.
type Publisher struct {
	nc     *nats.Conn
	prefix string
	logger zerolog.Logger
}

func NewPublisher(nc *nats.Conn, prefix string, logger zerolog.Logger) *Publisher {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultPrefix
	}
	return &Publisher{nc: nc, prefix: prefix, logger: logger.With().Str("component", "natspub").Logger()}
}

func (p *Publisher) TurnResolved(_ context.Context, evt duel.TurnResolvedEvent) {
	p.publish(p.Subject(evt.RoomCode, "turns"), TurnMessage{
		Room:       evt.RoomCode,
		Turn:       evt.TurnNumber,
		Action1:    string(evt.Action1),
		Action2:    string(evt.Action2),
		Finished:   evt.Finished,
		Winner:     int(evt.Winner),
		ResolvedAt: evt.ResolvedAt,
	})
}

func (p *Publisher) RoomChanged(_ context.Context, code string, reason string) {
	p.publish(p.Subject(code, "changed"), ChangeMessage{Room: code, Reason: reason})
}

func (p *Publisher) Log(_ context.Context, code string, text string) {
	p.publish(p.Subject(code, "log"), LogMessage{Room: code, Text: text})
}

// Subject builds <prefix>.rooms.<code>.<kind>; characters NATS treats as
// separators or wildcards are replaced in the code.
func (p *Publisher) Subject(code, kind string) string {
	return p.prefix + ".rooms." + subjectToken(code) + "." + kind
}

func (p *Publisher) publish(subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error().Err(err).Str("subject", subject).Msg("marshal event failed")
		return
	}
	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("publish event failed")
	}
}

func subjectToken(code string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		default:
			return r
		}
	}, code)
}
