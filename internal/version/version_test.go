package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDev(t *testing.T) {
	original := Version
	defer func() { Version = original }()

	for v, want := range map[string]bool{"dev": true, "1.0.0": false, "v1.2.3": false, "": false} {
		Version = v
		assert.Equal(t, want, IsDev(), "Version=%q", v)
	}
}

func TestFullAndUserAgent(t *testing.T) {
	original := Version
	defer func() { Version = original }()

	Version = "dev"
	assert.Equal(t, "taskhub version dev (built from source)", Full())
	assert.Equal(t, "taskhub-cli/dev", UserAgent())

	Version = "1.2.3"
	assert.Equal(t, "taskhub version 1.2.3", Full())
	assert.Equal(t, "taskhub-cli/1.2.3", UserAgent())
}
