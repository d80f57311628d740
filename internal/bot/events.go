package bot

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/standx-tools/volgate/internal/venue"
)

type EventType string

const (
	EventStarted     EventType = "started"
	EventStopped     EventType = "stopped"
	EventOrderResult EventType = "order_result"
	EventSweep       EventType = "sweep"
)

// Event is one observation from the running loop. Subscribers (UI, metrics
// exporters) receive every placement attempt and sweep outcome; the loop
// itself never blocks on slow subscribers.
type Event struct {
	Type    EventType       `json:"type"`
	Time    time.Time       `json:"time"`
	Symbol  string          `json:"symbol"`
	Side    venue.Side      `json:"side,omitempty"`
	Qty     decimal.Decimal `json:"qty,omitempty"`
	Price   decimal.Decimal `json:"price,omitempty"`
	Err     string          `json:"error,omitempty"`
	Swept   int             `json:"swept,omitempty"`
	Stats   *Stats          `json:"stats,omitempty"`
}
