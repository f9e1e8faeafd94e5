package data

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// PollMsg fires when the refresh interval of the channel named Tag elapses.
type PollMsg struct {
	Tag string
}

// PollConfig describes one refresh channel. An unchanged refresh doubles
// the interval up to Max; a changed one drops it back to the floor, which
// is Base while the terminal has focus and Background otherwise.
type PollConfig struct {
	Tag        string
	Base       time.Duration
	Background time.Duration
	Max        time.Duration
}

type pollChannel struct {
	PollConfig
	every   time.Duration
	blurred bool
}

func (c *pollChannel) floor() time.Duration {
	if c.blurred {
		return c.Background
	}
	return c.Base
}

// Poller schedules board refreshes. It belongs to one bubbletea Update
// loop and must not be shared across goroutines.
type Poller struct {
	channels map[string]*pollChannel
}

// NewPoller creates a poller with no channels.
func NewPoller() *Poller {
	return &Poller{channels: make(map[string]*pollChannel)}
}

// Add registers a channel at its focused interval.
func (p *Poller) Add(cfg PollConfig) {
	p.channels[cfg.Tag] = &pollChannel{PollConfig: cfg, every: cfg.Base}
}

// Interval is the channel's current refresh interval, zero when unknown.
func (p *Poller) Interval(tag string) time.Duration {
	if c := p.channels[tag]; c != nil {
		return c.every
	}
	return 0
}

// Start schedules the first tick of every channel.
func (p *Poller) Start() tea.Cmd {
	var cmds []tea.Cmd
	for _, c := range p.channels {
		cmds = append(cmds, c.tick())
	}
	return tea.Batch(cmds...)
}

// Schedule returns the next tick of tag, or nil for an unknown channel.
func (p *Poller) Schedule(tag string) tea.Cmd {
	if c := p.channels[tag]; c != nil {
		return c.tick()
	}
	return nil
}

// RecordHit notes a refresh that changed the board.
func (p *Poller) RecordHit(tag string) {
	if c := p.channels[tag]; c != nil {
		c.every = c.floor()
	}
}

// RecordMiss notes a refresh that changed nothing.
func (p *Poller) RecordMiss(tag string) {
	if c := p.channels[tag]; c != nil {
		c.every *= 2
		if c.Max > 0 {
			c.every = min(c.every, c.Max)
		}
	}
}

// SetFocused follows terminal focus. Regaining focus refreshes at the base
// rate; losing it never speeds a backed-off channel up.
func (p *Poller) SetFocused(tag string, focused bool) {
	c := p.channels[tag]
	if c == nil {
		return
	}
	c.blurred = !focused
	if focused {
		c.every = c.Base
	} else {
		c.every = max(c.every, c.Background)
	}
}

func (c *pollChannel) tick() tea.Cmd {
	tag := c.Tag
	return tea.Tick(c.every, func(time.Time) tea.Msg { return PollMsg{Tag: tag} })
}
