package persist

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	hashes  map[string]map[string]string
	calls   []string
	hsetErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{hashes: map[string]map[string]string{}}
}

func (f *fakeRedis) HSet(_ context.Context, key string, values ...any) *redis.IntCmd {
	f.calls = append(f.calls, "hset "+key)
	if f.hsetErr != nil {
		return redis.NewIntResult(0, f.hsetErr)
	}
	h := f.hashes[key]
	if h == nil {
		h = map[string]string{}
		f.hashes[key] = h
	}
	for i := 0; i+1 < len(values); i += 2 {
		h[values[i].(string)] = values[i+1].(string)
	}
	return redis.NewIntResult(int64(len(values)/2), nil)
}

func (f *fakeRedis) HGetAll(_ context.Context, key string) *redis.MapStringStringCmd {
	out := map[string]string{}
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	return redis.NewMapStringStringResult(out, nil)
}

func (f *fakeRedis) Rename(_ context.Context, key, newkey string) *redis.StatusCmd {
	f.calls = append(f.calls, "rename "+key+" "+newkey)
	h, ok := f.hashes[key]
	if !ok {
		return redis.NewStatusResult("", errors.New("ERR no such key"))
	}
	f.hashes[newkey] = h
	delete(f.hashes, key)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		f.calls = append(f.calls, "del "+k)
		if _, ok := f.hashes[k]; ok {
			delete(f.hashes, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedis_SaveLoad(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	r := NewRedis(fake, "")

	require.NoError(t, r.Save(ctx, "User", map[string]json.RawMessage{
		"a": json.RawMessage(`{"email":"a@x"}`),
	}))
	assert.Equal(t, []string{
		"del gatekeeper:User:tmp",
		"hset gatekeeper:User:tmp",
		"rename gatekeeper:User:tmp gatekeeper:User",
	}, fake.calls)

	out, err := r.Load(ctx, "User")
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":"a@x"}`, string(out["a"]))

	// a second save replaces rather than merges
	require.NoError(t, r.Save(ctx, "User", map[string]json.RawMessage{
		"b": json.RawMessage(`{}`),
	}))
	out, err = r.Load(ctx, "User")
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Contains(t, out, "b")
}

func TestRedis_SaveEmptyDeletes(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	r := NewRedis(fake, "gk:")
	fake.hashes["gk:User"] = map[string]string{"a": "{}"}

	require.NoError(t, r.Save(ctx, "User", nil))
	out, err := r.Load(ctx, "User")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRedis_SaveErrorKeepsLiveHash(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	r := NewRedis(fake, "")
	fake.hashes["gatekeeper:User"] = map[string]string{"a": "{}"}
	fake.hsetErr = errors.New("OOM")

	err := r.Save(ctx, "User", map[string]json.RawMessage{"b": json.RawMessage(`{}`)})
	assert.Error(t, err)
	assert.Contains(t, fake.hashes["gatekeeper:User"], "a")
	assert.NoError(t, r.Close())
}
