// This file is part of GoRE.
//
// Copyright (C) 2019-2026 GoRE Authors
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
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is an observer collecting the events it receives.
type recorder struct {
	events []Event
}

func (r *recorder) SymbolsChanged(ev Event) error {
	r.events = append(r.events, ev)
	return nil
}

func TestNotifierOrder(t *testing.T) {
	n := NewNotifier(zerolog.Nop())
	var calls []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		n.Subscribe(ObserverFunc(func(Event) error {
			calls = append(calls, name)
			return nil
		}))
	}
	n.Publish(Event{Kind: SymbolChange, Seq: 1})
	assert.Equal(t, []string{"first", "second", "third"}, calls)
}

func TestNotifierIsolatesFailingObservers(t *testing.T) {
	n := NewNotifier(zerolog.Nop())
	rec := &recorder{}
	n.Subscribe(ObserverFunc(func(Event) error { panic("boom") }))
	n.Subscribe(ObserverFunc(func(Event) error { return errors.New("failed") }))
	n.Subscribe(rec)

	assert.NotPanics(t, func() {
		n.Publish(Event{Kind: SymbolChange, Seq: 7})
	})
	require.Len(t, rec.events, 1)
	assert.Equal(t, int64(7), rec.events[0].Seq)
}

func TestNotifierUnsubscribe(t *testing.T) {
	n := NewNotifier(zerolog.Nop())
	a, b := &recorder{}, &recorder{}
	unsubscribeA := n.Subscribe(a)
	n.Subscribe(b)
	assert.Equal(t, 2, n.Len())

	unsubscribeA()
	unsubscribeA()
	assert.Equal(t, 1, n.Len())

	n.Publish(Event{Kind: SymbolChange})
	assert.Empty(t, a.events)
	assert.Len(t, b.events, 1)
}

func TestNotifierSubscribeDuringPublish(t *testing.T) {
	n := NewNotifier(zerolog.Nop())
	late := &recorder{}
	n.Subscribe(ObserverFunc(func(Event) error {
		n.Subscribe(late)
		return nil
	}))

	n.Publish(Event{Kind: SymbolChange, Seq: 1})
	assert.Empty(t, late.events, "Observers added during delivery only see later events.")

	n.Publish(Event{Kind: SymbolChange, Seq: 2})
	require.Len(t, late.events, 1)
	assert.Equal(t, int64(2), late.events[0].Seq)
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "SymbolChange", SymbolChange.String())
	assert.Equal(t, "EventKind(9)", EventKind(9).String())
}
