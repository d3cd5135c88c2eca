// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"context"
	"sync/atomic"

	"github.com/chzyer/readline"
)

// turnCanceler lets the SIGINT handler stop the chat turn in flight
// without touching the prompt.
type turnCanceler struct {
	current atomic.Pointer[context.CancelFunc]
}

// begin derives the context for one turn. The returned func must be
// called when the turn ends.
func (t *turnCanceler) begin(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	t.current.Store(&cancel)
	return ctx, func() {
		t.current.CompareAndSwap(&cancel, nil)
		cancel()
	}
}

// interrupt cancels the running turn and reports whether one was running.
func (t *turnCanceler) interrupt() bool {
	cancel := t.current.Swap(nil)
	if cancel == nil {
		return false
	}
	(*cancel)()
	return true
}

// Ctrl-G rings the terminal bell inside readline; drop it.
func filterInterruptRune(r rune) (rune, bool) {
	if r == readline.CharBell {
		return 0, false
	}
	return r, true
}
