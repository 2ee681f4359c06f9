package live

import (
	"fmt"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/pubsub/v2"
	"go.uber.org/zap"

	"github.com/pcprep/pcprep-api/internal/domain"
)

// SubscriberGauge tracks the number of connected subscribers.
type SubscriberGauge interface {
	SubscriberJoined()
	SubscriberLeft()
}

// Hub is the in-process room registry: one topic per event.
type Hub struct {
	hub      *pubsub.SimpleHub
	presence *Presence
	gauge    SubscriberGauge
}

func NewHub(clk clock.Clock, presenceWindow time.Duration, gauge SubscriberGauge) *Hub {
	return &Hub{
		hub: pubsub.NewSimpleHub(&pubsub.SimpleHubConfig{
			Logger: hubLogger{zap.S().Named("live")},
		}),
		presence: NewPresence(clk, presenceWindow),
		gauge:    gauge,
	}
}

func Topic(eventID uint) string {
	return fmt.Sprintf("event.%d", eventID)
}

// Publish delivers msg to the subscribers of its event asynchronously.
func (h *Hub) Publish(msg domain.LiveMessage) {
	_ = h.hub.Publish(Topic(msg.EventID), msg)
}

// Subscribe registers fn for the messages of one event. The returned function
// unsubscribes and is safe to call more than once.
func (h *Hub) Subscribe(eventID uint, fn func(domain.LiveMessage)) func() {
	unsub := h.hub.Subscribe(Topic(eventID), func(_ string, data interface{}) {
		if msg, ok := data.(domain.LiveMessage); ok {
			fn(msg)
		}
	})
	if h.gauge != nil {
		h.gauge.SubscriberJoined()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			unsub()
			if h.gauge != nil {
				h.gauge.SubscriberLeft()
			}
		})
	}
}

func (h *Hub) Touch(eventID uint, actor string) {
	h.presence.Touch(eventID, actor)
}

func (h *Hub) Active(eventID uint) []string {
	return h.presence.Active(eventID)
}

type hubLogger struct {
	s *zap.SugaredLogger
}

func (l hubLogger) Errorf(msg string, args ...interface{})   { l.s.Errorf(msg, args...) }
func (l hubLogger) Warningf(msg string, args ...interface{}) { l.s.Warnf(msg, args...) }
func (l hubLogger) Infof(msg string, args ...interface{})    { l.s.Infof(msg, args...) }
func (l hubLogger) Debugf(msg string, args ...interface{})   { l.s.Debugf(msg, args...) }
func (l hubLogger) Tracef(msg string, args ...interface{})   { l.s.Debugf(msg, args...) }
