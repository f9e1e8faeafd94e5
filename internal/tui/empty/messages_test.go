package empty

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub-cli/internal/output"
)

func apply(m Message) output.Response {
	var r output.Response
	for _, opt := range m.Options() {
		opt(&r)
	}
	return r
}

func TestNoWorkspacesOffersOnboarding(t *testing.T) {
	r := apply(NoWorkspaces())
	assert.Equal(t, "No workspaces yet. Create one or join with an invite link", r.Summary)
	require.Len(t, r.Breadcrumbs, 2)
	assert.Equal(t, "create", r.Breadcrumbs[0].Action)
	assert.Equal(t, "taskhub invite join <token>", r.Breadcrumbs[1].Cmd)
}

func TestScopedMessagesNameTheParent(t *testing.T) {
	assert.Contains(t, apply(NoProjects("w1")).Breadcrumbs[0].Cmd, "--workspace w1")
	assert.Contains(t, apply(NoTasks("p1")).Breadcrumbs[0].Cmd, "--project p1")
	assert.Contains(t, apply(NoComments("t1")).Breadcrumbs[0].Cmd, "comments add t1")
}

func TestMessageWithoutNextSteps(t *testing.T) {
	r := apply(NoActivity())
	assert.Equal(t, "No activity yet", r.Summary)
	assert.Empty(t, r.Breadcrumbs)

	assert.Equal(t, "No items on this page. There are 3 pages", apply(BeyondLastPage(3)).Summary)
}
