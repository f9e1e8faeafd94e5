package data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPollerBackoff(t *testing.T) {
	p := NewPoller()
	p.Add(PollConfig{Tag: "board", Base: time.Second, Background: 4 * time.Second, Max: 5 * time.Second})
	assert.Equal(t, time.Second, p.Interval("board"))

	p.RecordMiss("board")
	assert.Equal(t, 2*time.Second, p.Interval("board"))
	p.RecordMiss("board")
	p.RecordMiss("board")
	assert.Equal(t, 5*time.Second, p.Interval("board"), "capped at Max")

	p.RecordHit("board")
	assert.Equal(t, time.Second, p.Interval("board"))
}

func TestPollerFocus(t *testing.T) {
	p := NewPoller()
	p.Add(PollConfig{Tag: "board", Base: time.Second, Background: 4 * time.Second})

	p.SetFocused("board", false)
	assert.Equal(t, 4*time.Second, p.Interval("board"))
	p.RecordHit("board")
	assert.Equal(t, 4*time.Second, p.Interval("board"), "blurred floor is Background")

	p.RecordMiss("board")
	p.SetFocused("board", false)
	assert.Equal(t, 8*time.Second, p.Interval("board"))

	p.SetFocused("board", true)
	assert.Equal(t, time.Second, p.Interval("board"))
}

func TestPollerUnknownTag(t *testing.T) {
	p := NewPoller()
	assert.Zero(t, p.Interval("board"))
	assert.Nil(t, p.Schedule("board"))
	p.RecordMiss("board")
	p.SetFocused("board", false)
	assert.Nil(t, p.Start(), "nothing to schedule")
}
