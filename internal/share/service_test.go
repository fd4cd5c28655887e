package share

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore mimics the projects table, including the trigger behavior:
// lastEdited is re-stamped only when an update genuinely changes the
// row. The clock ticks once per mutation so ordering is deterministic.
type fakeStore struct {
	mu    sync.Mutex
	rows  map[string]*fakeRow
	clock int64
}

type fakeRow struct {
	uid, auth, author, name, data string
	createdAt, lastEdited         int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[string]*fakeRow{}, clock: 1000}
}

func (f *fakeStore) List(_ context.Context, page *Page) ([]Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	all := make([]*fakeRow, 0, len(f.rows))
	for _, row := range f.rows {
		all = append(all, row)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].createdAt != all[j].createdAt {
			return all[i].createdAt > all[j].createdAt
		}
		return all[i].uid < all[j].uid
	})

	if page != nil {
		if page.From < 0 || page.Limit < 0 {
			return nil, fmt.Errorf("offset/limit must not be negative")
		}
		if page.From > len(all) {
			all = nil
		} else {
			all = all[page.From:]
		}
		if page.Limit < len(all) {
			all = all[:page.Limit]
		}
	}

	out := make([]Summary, 0, len(all))
	for _, row := range all {
		out = append(out, Summary{UID: row.uid, Author: row.author, Name: row.name, LastEdited: row.lastEdited})
	}
	return out, nil
}

func (f *fakeStore) Get(_ context.Context, uid string) (*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[uid]
	if !ok {
		return nil, nil
	}
	return &Record{
		UID: row.uid, Auth: row.auth, Author: row.author,
		Name: row.name, LastEdited: row.lastEdited, Data: row.data,
	}, nil
}

func (f *fakeStore) Insert(_ context.Context, uid, auth, author, name, data string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.rows[uid]; ok {
		return fmt.Errorf("uid %q: %w", uid, ErrConflict)
	}
	f.clock++
	f.rows[uid] = &fakeRow{
		uid: uid, auth: auth, author: author, name: name, data: data,
		createdAt: f.clock, lastEdited: f.clock,
	}
	return nil
}

func (f *fakeStore) Update(_ context.Context, uid, auth, author, name, data string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[uid]
	if !ok || row.auth != auth {
		return false, nil
	}
	if row.author != author || row.name != name || row.data != data {
		f.clock++
		row.lastEdited = f.clock
	}
	row.author, row.name, row.data = author, name, data
	return true, nil
}

func (f *fakeStore) Delete(_ context.Context, uid, auth string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[uid]
	if !ok || row.auth != auth {
		return false, nil
	}
	delete(f.rows, uid)
	return true, nil
}

func shareBody(name, author string) map[string]any {
	return map[string]any{
		"project": map[string]any{
			"name":   name,
			"author": author,
			"xml":    "<blocks/>",
		},
	}
}

func TestShare_DerivesCapabilityPair(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	res, err := svc.Share(ctx, ShareRequest{CorsToken: "cors1", Data: shareBody("N", "A")})
	require.NoError(t, err)
	assert.Len(t, res.UID, 6)
	assert.Len(t, res.Token, 6)

	rec, err := svc.Get(ctx, GetRequest{UID: res.UID})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "A", rec.Author)
	assert.Equal(t, "N", rec.Name)
	assert.Equal(t, res.Token+"cors1", rec.Auth)

	var stored map[string]any
	require.NoError(t, json.Unmarshal([]byte(rec.Data), &stored))
	project := stored["project"].(map[string]any)
	assert.Equal(t, "<blocks/>", project["xml"])
}

func TestShare_Validation(t *testing.T) {
	svc := NewService(newFakeStore(), nil)
	ctx := context.Background()

	cases := []struct {
		name string
		req  ShareRequest
	}{
		{"missing project", ShareRequest{CorsToken: "cors1", Data: map[string]any{}}},
		{"missing name", ShareRequest{CorsToken: "cors1", Data: map[string]any{
			"project": map[string]any{"author": "A"},
		}}},
		{"missing author", ShareRequest{CorsToken: "cors1", Data: map[string]any{
			"project": map[string]any{"name": "N"},
		}}},
		{"missing cors_token", ShareRequest{Data: shareBody("N", "A")}},
		{"oversized cors_token", ShareRequest{CorsToken: "way-too-long-cors-token", Data: shareBody("N", "A")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Share(ctx, tc.req)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestGet_AbsentAndInvalid(t *testing.T) {
	svc := NewService(newFakeStore(), nil)
	ctx := context.Background()

	rec, err := svc.Get(ctx, GetRequest{UID: "nosuch"})
	require.NoError(t, err)
	assert.Nil(t, rec)

	_, err = svc.Get(ctx, GetRequest{})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestList_NeverIncludesAuthOrData(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	_, err := svc.Share(ctx, ShareRequest{CorsToken: "cors1", Data: shareBody("one", "A")})
	require.NoError(t, err)
	_, err = svc.Share(ctx, ShareRequest{CorsToken: "cors1", Data: shareBody("two", "B")})
	require.NoError(t, err)

	items, err := svc.List(ctx, ListRequest{})
	require.NoError(t, err)
	require.Len(t, items, 2)

	raw, err := json.Marshal(items)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "auth")
	assert.NotContains(t, string(raw), "data")
}

func TestList_Pagination(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := svc.Share(ctx, ShareRequest{
			CorsToken: "cors1",
			Data:      shareBody(fmt.Sprintf("p%d", i), "A"),
		})
		require.NoError(t, err)
	}

	from0, limit2 := 0, 2
	first, err := svc.List(ctx, ListRequest{From: &from0, Limit: &limit2})
	require.NoError(t, err)
	from2 := 2
	second, err := svc.List(ctx, ListRequest{From: &from2, Limit: &limit2})
	require.NoError(t, err)

	require.Len(t, first, 2)
	require.Len(t, second, 2)

	seen := map[string]bool{}
	for _, s := range append(first, second...) {
		assert.False(t, seen[s.UID], "uid %s appeared in both pages", s.UID)
		seen[s.UID] = true
	}
	assert.Len(t, seen, 4)
}

func TestWrite_BlanksSharedCapability(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	res, err := svc.Share(ctx, ShareRequest{CorsToken: "cors1", Data: shareBody("N", "A")})
	require.NoError(t, err)

	before, err := svc.Get(ctx, GetRequest{UID: res.UID})
	require.NoError(t, err)

	out, err := svc.Write(ctx, WriteRequest{
		CorsToken: "cors1",
		Data: map[string]any{
			"project": map[string]any{
				"name":   "N2",
				"author": "A2",
				"xml":    "<blocks>updated</blocks>",
				"shared": map[string]any{"uid": res.UID, "token": res.Token},
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, res.UID, out.UID)

	after, err := svc.Get(ctx, GetRequest{UID: res.UID})
	require.NoError(t, err)
	require.NotNil(t, after)
	assert.Equal(t, "N2", after.Name)
	assert.Equal(t, "A2", after.Author)
	assert.Greater(t, after.LastEdited, before.LastEdited)

	var stored map[string]any
	require.NoError(t, json.Unmarshal([]byte(after.Data), &stored))
	shared := stored["project"].(map[string]any)["shared"].(map[string]any)
	assert.Equal(t, "", shared["uid"])
	assert.Equal(t, "", shared["token"])
	assert.Equal(t, "<blocks>updated</blocks>", stored["project"].(map[string]any)["xml"])
}

func TestWrite_WrongTokenIsSilentNoop(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	res, err := svc.Share(ctx, ShareRequest{CorsToken: "cors1", Data: shareBody("N", "A")})
	require.NoError(t, err)

	out, err := svc.Write(ctx, WriteRequest{
		CorsToken: "cors1",
		Data: map[string]any{
			"project": map[string]any{
				"name":   "hijacked",
				"author": "eve",
				"shared": map[string]any{"uid": res.UID, "token": "wrong1"},
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, res.UID, out.UID)

	rec, err := svc.Get(ctx, GetRequest{UID: res.UID})
	require.NoError(t, err)
	assert.Equal(t, "N", rec.Name)
	assert.Equal(t, "A", rec.Author)
}

func TestUnshare_Idempotent(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	res, err := svc.Share(ctx, ShareRequest{CorsToken: "cors1", Data: shareBody("N", "A")})
	require.NoError(t, err)

	out, err := svc.Unshare(ctx, UnshareRequest{UID: res.UID, Token: res.Token, CorsToken: "cors1"})
	require.NoError(t, err)
	assert.Equal(t, res.UID, out.UID)

	rec, err := svc.Get(ctx, GetRequest{UID: res.UID})
	require.NoError(t, err)
	assert.Nil(t, rec)

	// second delete is indistinguishable from the first
	out, err = svc.Unshare(ctx, UnshareRequest{UID: res.UID, Token: res.Token, CorsToken: "cors1"})
	require.NoError(t, err)
	assert.Equal(t, res.UID, out.UID)
}

func TestCreatedAtStableAcrossWrites(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	res, err := svc.Share(ctx, ShareRequest{CorsToken: "cors1", Data: shareBody("N", "A")})
	require.NoError(t, err)

	created := store.rows[res.UID].createdAt

	_, err = svc.Write(ctx, WriteRequest{
		CorsToken: "cors1",
		Data: map[string]any{
			"project": map[string]any{
				"name":   "N2",
				"author": "A",
				"shared": map[string]any{"uid": res.UID, "token": res.Token},
			},
		},
	})
	require.NoError(t, err)

	row := store.rows[res.UID]
	assert.Equal(t, created, row.createdAt)
	assert.GreaterOrEqual(t, row.lastEdited, row.createdAt)
}
