package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"sentinel-signals/internal/model"
)

// DefaultNATSSubject prefixes every published subject.
const DefaultNATSSubject = "signals"

const natsFlushTimeout = 5 * time.Second

// publisher is the subset of *nats.Conn the notifier needs.
type publisher interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSNotifier publishes each signal as JSON on <subject>.<symbol>.<timeframe>.
type NATSNotifier struct {
	Subject string
	conn    publisher
	log     logrus.FieldLogger
}

// NewNATSNotifier connects to natsURL with unlimited reconnects.
func NewNATSNotifier(natsURL, subject string, log logrus.FieldLogger) (*NATSNotifier, error) {
	if natsURL == "" {
		natsURL = nats.DefaultURL
	}
	if subject == "" {
		subject = DefaultNATSSubject
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("notifier", "nats")

	nc, err := nats.Connect(natsURL,
		nats.Name("sentinel-signals"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.WithError(err).Warn("nats disconnected, reconnecting")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrl()).Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Info("nats connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSNotifier{Subject: subject, conn: nc, log: log}, nil
}

func (n *NATSNotifier) Name() string { return "nats" }

// signalPayload is the wire form of a published report.
type signalPayload struct {
	Symbol      string          `json:"symbol"`
	Timeframe   string          `json:"timeframe"`
	Direction   model.Direction `json:"direction"`
	Score       float64         `json:"score"`
	EntryPrice  float64         `json:"entry_price"`
	StopLoss    float64         `json:"stop_loss"`
	TargetPrice float64         `json:"target_price"`
	Risk        riskPayload     `json:"risk"`
	Stars       int             `json:"stars"`
	Reliability string          `json:"reliability"`
	Timing      string          `json:"timing"`
	Timestamp   time.Time       `json:"timestamp"`
	Report      string          `json:"report"`
}

type riskPayload struct {
	RiskPercent         float64 `json:"risk_percent"`
	RewardPercent       float64 `json:"reward_percent"`
	RiskRewardRatio     float64 `json:"risk_reward_ratio"`
	SuggestedLeverage   int     `json:"suggested_leverage"`
	PositionSizePercent float64 `json:"position_size_percent"`
	VolatilityPercent   float64 `json:"volatility_percent"`
}

func newSignalPayload(sig *model.Signal, report string) signalPayload {
	return signalPayload{
		Symbol:      sig.Symbol,
		Timeframe:   sig.Timeframe,
		Direction:   sig.Direction,
		Score:       sig.Score,
		EntryPrice:  sig.EntryPrice,
		StopLoss:    sig.StopLoss,
		TargetPrice: sig.TargetPrice,
		Risk: riskPayload{
			RiskPercent:         sig.Risk.RiskPercent,
			RewardPercent:       sig.Risk.RewardPercent,
			RiskRewardRatio:     sig.Risk.RiskRewardRatio,
			SuggestedLeverage:   sig.Risk.SuggestedLeverage,
			PositionSizePercent: sig.Risk.PositionSizePercent,
			VolatilityPercent:   sig.Risk.VolatilityPercent,
		},
		Stars:       sig.Strength.Stars,
		Reliability: sig.Strength.Reliability,
		Timing:      sig.Strength.Timing,
		Timestamp:   sig.Timestamp.UTC(),
		Report:      htmlTags.Replace(report),
	}
}

// subjectFor builds "<prefix>.<BASEQUOTE>.<timeframe>"; NATS tokens cannot hold '/' or '.'.
func subjectFor(prefix string, sig *model.Signal) string {
	token := strings.NewReplacer("/", "", ".", "_", " ", "").Replace(sig.Symbol)
	return fmt.Sprintf("%s.%s.%s", prefix, token, sig.Timeframe)
}

// Notify publishes signal reports. Plain text messages are skipped.
func (n *NATSNotifier) Notify(ctx context.Context, msg Message) error {
	if msg.Signal == nil {
		return nil
	}
	data, err := json.Marshal(newSignalPayload(msg.Signal, msg.Text))
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}
	subject := subjectFor(n.Subject, msg.Signal)
	if err := n.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	fctx, cancel := context.WithTimeout(ctx, natsFlushTimeout)
	defer cancel()
	if err := n.conn.FlushWithContext(fctx); err != nil {
		return fmt.Errorf("flush %s: %w", subject, err)
	}
	n.log.WithField("subject", subject).Debug("signal published")
	return nil
}

// Close closes the connection.
func (n *NATSNotifier) Close() {
	n.conn.Close()
}
