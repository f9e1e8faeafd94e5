package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func register(r *Realm, key string, p Pooler) {
	RealmPool(r, key, func() Pooler { return p })
}

func TestRealmNewAndContext(t *testing.T) {
	r := NewRealm("test", context.Background())
	assert.Equal(t, "test", r.Name())
	assert.NoError(t, r.Context().Err())
}

func TestRealmRegisterAndLookup(t *testing.T) {
	r := NewRealm("test", context.Background())
	p := NewPool[int]("mypool", PoolConfig{}, nil)

	register(r, "mypool", p)
	assert.Same(t, p, r.Pool("mypool"))
	assert.Nil(t, r.Pool("missing"))
	assert.Equal(t, 1, r.Len())
}

func TestRealmTeardownCancelsContextAndClearsPools(t *testing.T) {
	r := NewRealm("test", context.Background())
	p := NewPool[int]("data", PoolConfig{}, nil)
	p.Set(42)
	register(r, "data", p)
	ctx := r.Context()

	r.Teardown()

	assert.Error(t, ctx.Err())
	assert.False(t, p.Get().HasData)
	assert.Nil(t, r.Pool("data"))
}

func TestRealmTeardownCascadesToChildren(t *testing.T) {
	ws := NewRealm("workspace", context.Background())
	proj := ws.Child("project")

	members := NewPool[[]string]("members", PoolConfig{}, nil)
	members.Set([]string{"ada"})
	register(ws, "members", members)

	tasks := NewPool[[]string]("tasks", PoolConfig{}, nil)
	tasks.Set([]string{"t1"})
	register(proj, "tasks", tasks)

	ws.Teardown()

	assert.Error(t, proj.Context().Err())
	assert.False(t, members.Get().HasData)
	assert.False(t, tasks.Get().HasData)
}

func TestRealmChildTeardownLeavesParent(t *testing.T) {
	ws := NewRealm("workspace", context.Background())
	proj := ws.Child("project")

	members := NewPool[int]("members", PoolConfig{}, nil)
	members.Set(1)
	register(ws, "members", members)

	proj.Teardown()

	assert.NoError(t, ws.Context().Err())
	assert.True(t, members.Get().HasData)
}

func TestRealmChildOfDeadRealmIsDead(t *testing.T) {
	r := NewRealm("gone", context.Background())
	r.Teardown()

	c := r.Child("late")
	assert.Error(t, c.Context().Err())
}

func TestRealmInvalidateRecurses(t *testing.T) {
	ws := NewRealm("workspace", context.Background())
	proj := ws.Child("project")
	p := NewPool[int]("tasks", PoolConfig{}, nil)
	p.Set(1)
	register(proj, "tasks", p)

	ws.Invalidate()
	assert.Equal(t, StateStale, p.Get().State)
}

func TestRealmPoolCreatesOnce(t *testing.T) {
	r := NewRealm("test", context.Background())
	created := 0
	create := func() *Pool[int] {
		created++
		return NewPool[int]("x", PoolConfig{}, nil)
	}

	a := RealmPool(r, "x", create)
	b := RealmPool(r, "x", create)
	assert.Same(t, a, b)
	assert.Equal(t, 1, created)
}

func TestRealmPoolTypeMismatchPanics(t *testing.T) {
	r := NewRealm("test", context.Background())
	RealmPool(r, "x", func() *Pool[int] { return NewPool[int]("x", PoolConfig{}, nil) })

	assert.Panics(t, func() {
		RealmPool(r, "x", func() *Pool[string] { return NewPool[string]("x", PoolConfig{}, nil) })
	})
}

func TestKeyedPool(t *testing.T) {
	kp := NewKeyedPool(func(key string) *Pool[string] {
		return NewPool(key, PoolConfig{}, func(context.Context) (string, error) {
			return "data-" + key, nil
		})
	})

	assert.Zero(t, kp.Len())
	p1 := kp.Get("t1")
	assert.Same(t, p1, kp.Get("t1"))
	assert.Equal(t, 1, kp.Len())

	_, err := p1.Load(context.Background())
	require.NoError(t, err)
	_, err = kp.Get("t2").Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "data-t1", p1.Get().Data)

	kp.Invalidate()
	assert.Equal(t, StateStale, p1.Get().State)

	p2 := kp.Get("t2")
	kp.Drop("t2", "t9")
	assert.False(t, p2.Get().HasData)
	assert.NotSame(t, p2, kp.Get("t2"))

	kp.Clear()
	assert.False(t, p1.Get().HasData)
	assert.Zero(t, kp.Len())
}
