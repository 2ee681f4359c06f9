package live

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/juju/clock"
)

// MaxNameLength caps the names kept for an event, in runes.
const MaxNameLength = 80

// Presence remembers who acted on an event recently.
type Presence struct {
	mu     sync.Mutex
	clock  clock.Clock
	window time.Duration
	seen   map[uint]map[string]time.Time
}

func NewPresence(clk clock.Clock, window time.Duration) *Presence {
	return &Presence{
		clock:  clk,
		window: window,
		seen:   make(map[uint]map[string]time.Time),
	}
}

func (p *Presence) Touch(eventID uint, actor string) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return
	}
	if runes := []rune(actor); len(runes) > MaxNameLength {
		actor = strings.TrimSpace(string(runes[:MaxNameLength]))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.seen[eventID] == nil {
		p.seen[eventID] = make(map[string]time.Time)
	}
	p.seen[eventID][actor] = p.clock.Now()
}

// Active returns the sorted names seen within the window and forgets the others.
func (p *Presence) Active(eventID uint) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := p.clock.Now().Add(-p.window)
	names := []string{}
	for name, at := range p.seen[eventID] {
		if at.Before(cutoff) {
			delete(p.seen[eventID], name)
			continue
		}
		names = append(names, name)
	}
	if len(p.seen[eventID]) == 0 {
		delete(p.seen, eventID)
	}

	sort.Strings(names)
	return names
}
