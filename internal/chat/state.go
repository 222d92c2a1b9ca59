package chat

import (
	"slices"
	"sync"
)

// Snapshot is an immutable copy of the conversation handed to observers.
type Snapshot struct {
	Messages    []Message
	IsLoading   bool
	IsStreaming bool
}

// Conversation is the ordered message log plus the loading/streaming flags.
//
// Every mutation runs under one mutex. Turn mutations carry the generation
// that was current when the turn began; Reset bumps the generation, so
// whatever a superseded turn (or history load) tries to write afterwards is
// dropped.
type Conversation struct {
	mu        sync.Mutex
	messages  []Message
	loading   bool
	streaming bool
	turnOpen  bool
	gen       uint64

	listeners    map[int]func(Snapshot)
	nextListener int

	// seq numbers applied mutations and is guarded by mu. delivered is the
	// last sequence whose listeners have run and is guarded by notifyMu.
	seq       uint64
	notifyMu  sync.Mutex
	notified  *sync.Cond
	delivered uint64
}

func NewConversation() *Conversation {
	c := &Conversation{listeners: make(map[int]func(Snapshot))}
	c.notified = sync.NewCond(&c.notifyMu)
	return c
}

func (c *Conversation) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Conversation) Messages() []Message {
	return c.Snapshot().Messages
}

func (c *Conversation) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

func (c *Conversation) IsStreaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming
}

// Subscribe registers fn to receive a snapshot after every mutation, in
// mutation order. fn runs on the mutating goroutine without any state lock
// held, so it may read from the Conversation. It must not mutate it, and
// while it runs later mutations wait for their own notification turn.
func (c *Conversation) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	c.mu.Lock()
	key := c.nextListener
	c.nextListener++
	c.listeners[key] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, key)
		c.mu.Unlock()
	}
}

// Reset empties the conversation, clears both flags and supersedes any
// outstanding turn.
func (c *Conversation) Reset() {
	c.mutate(func() bool {
		c.messages = nil
		c.loading = false
		c.streaming = false
		c.turnOpen = false
		c.gen++
		return true
	})
}

func (c *Conversation) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// beginTurn appends the user's message and raises both flags in a single
// mutation. It refuses while another turn is open.
func (c *Conversation) beginTurn(user Message) (uint64, error) {
	var (
		gen uint64
		err error
	)
	c.mutate(func() bool {
		if c.turnOpen {
			err = ErrTurnInFlight
			return false
		}
		c.messages = append(c.messages, user)
		c.loading = true
		c.streaming = true
		c.turnOpen = true
		gen = c.gen
		return true
	})
	return gen, err
}

func (c *Conversation) endTurn(gen uint64) {
	c.mutate(func() bool {
		if gen != c.gen || !c.turnOpen {
			return false
		}
		c.loading = false
		c.streaming = false
		c.turnOpen = false
		return true
	})
}

func (c *Conversation) appendIf(gen uint64, msg Message) bool {
	return c.mutate(func() bool {
		if gen != c.gen {
			return false
		}
		c.messages = append(c.messages, msg)
		return true
	})
}

func (c *Conversation) updateTextIf(gen uint64, id, text string) bool {
	return c.mutate(func() bool {
		if gen != c.gen {
			return false
		}
		i := c.indexLocked(id)
		if i < 0 || c.messages[i].Text == text {
			return false
		}
		c.messages[i].Text = text
		return true
	})
}

func (c *Conversation) removeIf(gen uint64, id string) bool {
	return c.mutate(func() bool {
		if gen != c.gen {
			return false
		}
		i := c.indexLocked(id)
		if i < 0 {
			return false
		}
		c.messages = slices.Delete(c.messages, i, i+1)
		return true
	})
}

// hydrate installs history as the head of the log. Messages appended since
// the load started stay after it; duplicates by id are dropped.
func (c *Conversation) hydrate(gen uint64, history []Message) bool {
	return c.mutate(func() bool {
		if gen != c.gen {
			return false
		}
		seen := make(map[string]struct{}, len(history))
		merged := make([]Message, 0, len(history)+len(c.messages))
		for _, m := range history {
			seen[m.ID] = struct{}{}
			merged = append(merged, m)
		}
		for _, m := range c.messages {
			if _, ok := seen[m.ID]; !ok {
				merged = append(merged, m)
			}
		}
		c.messages = merged
		return true
	})
}

func (c *Conversation) indexLocked(id string) int {
	return slices.IndexFunc(c.messages, func(m Message) bool { return m.ID == id })
}

func (c *Conversation) snapshotLocked() Snapshot {
	msgs := make([]Message, len(c.messages))
	for i, m := range c.messages {
		m.Attachments = slices.Clone(m.Attachments)
		msgs[i] = m
	}
	return Snapshot{
		Messages:    msgs,
		IsLoading:   c.loading,
		IsStreaming: c.streaming,
	}
}

// mutate applies fn under the state lock and, when fn reports a change,
// notifies listeners. The lock is released before listeners run; each
// mutation takes a sequence number under it and waits for the previous
// one's listeners to finish, so notifications stay in mutation order.
func (c *Conversation) mutate(fn func() bool) bool {
	c.mu.Lock()
	if !fn() {
		c.mu.Unlock()
		return false
	}
	c.seq++
	seq := c.seq
	snap := c.snapshotLocked()
	listeners := make([]func(Snapshot), 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	c.notifyMu.Lock()
	for c.delivered+1 != seq {
		c.notified.Wait()
	}
	c.notifyMu.Unlock()

	defer func() {
		c.notifyMu.Lock()
		c.delivered = seq
		c.notified.Broadcast()
		c.notifyMu.Unlock()
	}()
	for _, l := range listeners {
		l(snap)
	}
	return true
}
