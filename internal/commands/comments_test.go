package commands

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub-cli/internal/filter"
	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/output"
)

func TestCommentsListPages(t *testing.T) {
	env := newTestEnv(t)
	env.gw.AddComments("t1", 25)

	res, err := env.run(t, NewCommentsCmd(), []string{"list", "t1"})
	require.NoError(t, err)

	first := decode[[]models.Comment](t, res.Data)
	assert.Len(t, first, 20)
	assert.Equal(t, "Comment 25", first[0].Content)
	assert.Equal(t, "Page 1 of 2 (26 total)", res.Summary)
	next, ok := res.crumb("next")
	require.True(t, ok)
	assert.Equal(t, "taskhub comments list t1 --page 2", next.Cmd)

	p := decode[models.Pagination](t, res.Meta["pagination"])
	assert.True(t, p.HasNext)
	assert.False(t, p.HasPrev)

	res, err = env.run(t, NewCommentsCmd(), []string{"list", "t1", "--page", "2"})
	require.NoError(t, err)
	second := decode[[]models.Comment](t, res.Data)
	require.Len(t, second, 6)
	assert.Equal(t, "First!", second[len(second)-1].Content)
	_, ok = res.crumb("next")
	assert.False(t, ok)
}

func TestCommentsListAll(t *testing.T) {
	env := newTestEnv(t)
	env.gw.AddComments("t1", 25)

	res, err := env.run(t, NewCommentsCmd(), []string{"list", "t1", "--all", "--limit", "10"})
	require.NoError(t, err)

	assert.Len(t, decode[[]models.Comment](t, res.Data), 26)
	assert.Equal(t, "26 comment(s)", res.Summary)
	assert.Equal(t, 3, env.gw.Count(http.MethodGet, "/tasks/t1/comments"))
}

func TestCommentsListGrep(t *testing.T) {
	env := newTestEnv(t)
	env.gw.AddComments("t1", 25)

	res, err := env.run(t, NewCommentsCmd(), []string{"list", "t1", "--all", "--grep", "comment 1"})
	require.NoError(t, err)
	got := decode[[]models.Comment](t, res.Data)
	assert.Len(t, got, 10)
	assert.Equal(t, "10 comment(s)", res.Summary)

	_, err = env.run(t, NewCommentsCmd(), []string{"list", "t1", "--grep", "comment 1"})
	require.ErrorIs(t, err, filter.ErrPaginatedSearch)
}

func TestCommentsListBeyondLastPage(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.run(t, NewCommentsCmd(), []string{"list", "t1", "--page", "4"})
	require.NoError(t, err)
	assert.Empty(t, decode[[]models.Comment](t, res.Data))
	assert.Equal(t, "No items on this page. There are 1 pages", res.Summary)
}

func TestCommentsListEmpty(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.run(t, NewCommentsCmd(), []string{"list", "t2"})
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage("[]"), res.Data)
	assert.Equal(t, "No comments yet", res.Summary)
	_, ok := res.crumb("comment")
	assert.True(t, ok)
}

func TestCommentsAdd(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.run(t, NewCommentsCmd(), []string{"add", "t2", "Looks", "good"})
	require.NoError(t, err)
	c := decode[models.Comment](t, res.Data)
	assert.Equal(t, "Looks good", c.Content)
	assert.Equal(t, "t2", c.TaskID)

	cmd := NewCommentsCmd()
	cmd.SetIn(strings.NewReader("From a pipe\n"))
	res, err = env.run(t, cmd, []string{"add", "t2", "--stdin"})
	require.NoError(t, err)
	assert.Equal(t, "From a pipe\n", decode[models.Comment](t, res.Data).Content)

	_, err = env.run(t, NewCommentsCmd(), []string{"add", "t2", "  "})
	require.Error(t, err)
	assert.Equal(t, "Comment text required", output.AsError(err).Message)
}

func TestCommentsDelete(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, NewCommentsCmd(), []string{"delete", "t1"})
	require.Error(t, err)

	res, err := env.run(t, NewCommentsCmd(), []string{"delete", "t1", "c1", "--force"})
	require.NoError(t, err)
	assert.Equal(t, "Comment deleted", res.Summary)

	res, err = env.run(t, NewCommentsCmd(), []string{"list", "t1"})
	require.NoError(t, err)
	assert.Empty(t, decode[[]models.Comment](t, res.Data))
}
