// Package connectivity tracks whether the backing store is reachable and
// exposes that as a two-state machine with a single subscriber.
package connectivity

import (
	"errors"
	"log/slog"
	"sync"
)

// State is the reachability state seen by the rest of the application.
type State string

const (
	Disconnected State = "disconnected"
	Connected    State = "connected"
)

// Event is a reachability notification from the platform facility.
type Event string

const (
	EventAvailable Event = "available"
	EventLost      Event = "lost"
)

// transitions is the whole state machine. An event missing from a state's
// row leaves the state unchanged.
var transitions = map[State]map[Event]State{
	Disconnected: {EventAvailable: Connected},
	Connected:    {EventLost: Disconnected},
}

var (
	ErrAlreadySubscribed = errors.New("connectivity: observer already has a subscriber")
	ErrNilSubscriber     = errors.New("connectivity: subscriber is nil")
)

// Observer holds the current State and notifies at most one subscriber when
// it changes. The zero value is not usable; call NewObserver.
type Observer struct {
	// deliver serialises callbacks so the subscriber sees transitions in
	// the order they happened. It is always taken before mu.
	deliver sync.Mutex

	mu         sync.Mutex
	state      State
	subscriber func(State)

	logger *slog.Logger
}

// NewObserver returns an Observer in the Disconnected state.
func NewObserver(logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{state: Disconnected, logger: logger}
}

// Available reports that the store became reachable.
func (o *Observer) Available() { o.handle(EventAvailable) }

// Lost reports that the store stopped being reachable.
func (o *Observer) Lost() { o.handle(EventLost) }

func (o *Observer) handle(ev Event) {
	o.deliver.Lock()
	defer o.deliver.Unlock()

	o.mu.Lock()
	prev := o.state
	next, ok := transitions[prev][ev]
	if !ok || next == prev {
		o.mu.Unlock()
		return
	}
	o.state = next
	fn := o.subscriber
	o.mu.Unlock()

	o.logger.Info("connectivity changed", "from", prev, "to", next, "event", ev)
	if fn != nil {
		fn(next)
	}
}

// State returns the current state.
func (o *Observer) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Connected reports whether the current state is Connected.
func (o *Observer) Connected() bool {
	return o.State() == Connected
}

// Subscribe registers fn and immediately calls it with the current state.
// Afterwards fn is called once per transition. Only one subscription may be
// active; fn may call Unsubscribe but must not call Subscribe.
func (o *Observer) Subscribe(fn func(State)) error {
	if fn == nil {
		return ErrNilSubscriber
	}

	o.deliver.Lock()
	defer o.deliver.Unlock()

	o.mu.Lock()
	if o.subscriber != nil {
		o.mu.Unlock()
		return ErrAlreadySubscribed
	}
	o.subscriber = fn
	current := o.state
	o.mu.Unlock()

	fn(current)
	return nil
}

// Unsubscribe removes the active subscription, if any. It is safe to call
// repeatedly and without a prior Subscribe.
func (o *Observer) Unsubscribe() {
	o.mu.Lock()
	o.subscriber = nil
	o.mu.Unlock()
}
