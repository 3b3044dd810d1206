// This file is part of GoRE.
//
// Copyright (C) 2026 GoRE Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package symfile

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventKind is the type of a change event.
type EventKind uint8

const (
	// SymbolChange is published after debug information was attached to an image.
	SymbolChange EventKind = iota + 1
)

func (k EventKind) String() string {
	if k == SymbolChange {
		return "SymbolChange"
	}
	return fmt.Sprintf("EventKind(%d)", uint8(k))
}

// Event describes one successful attach. Events are values and are never
// modified after they are published.
type Event struct {
	Kind EventKind
	// Image is the image the source was attached to.
	Image *Image
	// Source is the newly attached debug information.
	Source *DebugSource
	// Previous is the replaced source, nil on first attach.
	Previous *DebugSource
	// Seq orders events of one database.
	Seq int64
	// Time is when the attach was committed.
	Time time.Time
}

// Observer receives change events.
type Observer interface {
	SymbolsChanged(Event) error
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event) error

// SymbolsChanged calls f(ev).
func (f ObserverFunc) SymbolsChanged(ev Event) error {
	return f(ev)
}

type registration struct {
	id       uint64
	observer Observer
}

// Notifier delivers change events to its observers. It belongs to one
// session; there is no global registry.
type Notifier struct {
	mu        sync.Mutex
	nextID    uint64
	observers []registration
	logger    zerolog.Logger
}

// NewNotifier returns a notifier without observers.
func NewNotifier(logger zerolog.Logger) *Notifier {
	return &Notifier{logger: logger.With().Str("component", "notifier").Logger()}
}

// Subscribe registers o. Observers are called in registration order. The
// returned function removes the registration; calling it more than once is
// harmless.
func (n *Notifier) Subscribe(o Observer) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	id := n.nextID
	n.observers = append(n.observers, registration{id: id, observer: o})
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		for i, r := range n.observers {
			if r.id == id {
				n.observers = append(n.observers[:i:i], n.observers[i+1:]...)
				return
			}
		}
	}
}

// Len returns the number of registered observers.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.observers)
}

// Publish delivers ev to every observer registered when Publish was called,
// synchronously and in registration order. A failing or panicking observer is
// logged and does not stop delivery to the others. No lock is held while
// observers run, so they may subscribe, unsubscribe or attach again.
func (n *Notifier) Publish(ev Event) {
	n.mu.Lock()
	observers := make([]registration, len(n.observers))
	copy(observers, n.observers)
	n.mu.Unlock()

	for _, r := range observers {
		if err := n.deliver(r.observer, ev); err != nil {
			n.logger.Warn().
				Err(err).
				Uint64("observer", r.id).
				Int64("seq", ev.Seq).
				Msg("Observer failed to handle symbol change")
		}
	}
}

func (n *Notifier) deliver(o Observer, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("observer panicked: %v", r)
		}
	}()
	return o.SymbolsChanged(ev)
}
