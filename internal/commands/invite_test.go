package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub-cli/internal/gatewaytest"
	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/output"
)

func TestInviteLifecycle(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.run(t, NewInviteCmd(), []string{"show"})
	require.NoError(t, err)
	assert.Equal(t, "No invite link yet", res.Summary)
	none := decode[map[string]any](t, res.Data)
	assert.Nil(t, none["token"])
	_, ok := res.crumb("generate")
	assert.True(t, ok)

	res, err = env.run(t, NewInviteCmd(), []string{"generate"})
	require.NoError(t, err)
	link := decode[models.InviteLink](t, res.Data)
	assert.Equal(t, env.gw.InviteToken(gatewaytest.WorkspaceID), link.Token)

	res, err = env.run(t, NewInviteCmd(), []string{"generate"})
	require.NoError(t, err)
	assert.Equal(t, link.Token, decode[models.InviteLink](t, res.Data).Token)

	_, err = env.run(t, NewInviteCmd(), []string{"reset"})
	require.Error(t, err)
	assert.Equal(t, link.Token, env.gw.InviteToken(gatewaytest.WorkspaceID))

	res, err = env.run(t, NewInviteCmd(), []string{"reset", "--force"})
	require.NoError(t, err)
	reset := decode[models.InviteLink](t, res.Data)
	assert.NotEqual(t, link.Token, reset.Token)

	res, err = env.run(t, NewInviteCmd(), []string{"show"})
	require.NoError(t, err)
	assert.Equal(t, reset.Token, decode[models.InviteLink](t, res.Data).Token)
}

func TestInviteJoinErrors(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, NewInviteCmd(), []string{"join", "not-a-token"})
	require.Error(t, err)
	e := output.AsError(err)
	assert.Equal(t, models.ReasonInviteTokenInvalid, e.Reason)
	assert.Contains(t, e.Hint, "new one")

	res, err := env.run(t, NewInviteCmd(), []string{"generate"})
	require.NoError(t, err)
	link := decode[models.InviteLink](t, res.Data)

	_, err = env.run(t, NewInviteCmd(), []string{"join", link.URL})
	require.Error(t, err)
	e = output.AsError(err)
	assert.Equal(t, models.ReasonAlreadyMember, e.Reason)
	assert.Contains(t, e.Hint, "taskhub workspaces list")
}

func TestInviteToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"abc123", "abc123"},
		{"  abc123 ", "abc123"},
		{"https://app.example.com/join/abc123", "abc123"},
		{"https://app.example.com/join/abc123/", "abc123"},
		{"https://app.example.com/invite?token=xyz", "xyz"},
		{"https://app.example.com/", "https://app.example.com/"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, inviteToken(tt.in))
		})
	}
}
