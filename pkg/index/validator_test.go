package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolbeans/yomikae/pkg/lawxml"
	"github.com/coolbeans/yomikae/pkg/yomikae"
)

func TestValidator(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	require.NoError(t, store.AddProvisions(ctx, "law1", []string{"article:5", "chapter:2/section:1"}))
	v := NewValidator(store)

	ok, err := v.Exists(ctx, "law1", yomikae.Reference{Article: "5"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.Exists(ctx, "law1", yomikae.Reference{Chapter: "2", Section: "1"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.Exists(ctx, "law1", yomikae.Reference{Article: "6"})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = v.Exists(ctx, "law1", yomikae.Reference{LawName: "法", Article: "5"})
	assert.ErrorIs(t, err, yomikae.ErrUnknownLaw)

	_, err = v.Exists(ctx, "law2", yomikae.Reference{Article: "5"})
	assert.ErrorIs(t, err, yomikae.ErrUnknownLaw)
}

type countingValidator struct {
	calls int
	err   error
}

func (c *countingValidator) Exists(context.Context, string, yomikae.Reference) (bool, error) {
	c.calls++
	return c.err == nil, c.err
}

func TestCachedValidator(t *testing.T) {
	ctx := context.Background()
	ref := yomikae.Reference{Article: "5"}

	next := &countingValidator{}
	cached := NewCachedValidator(next, time.Minute)
	for i := 0; i < 3; i++ {
		ok, err := cached.Exists(ctx, "law1", ref)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, 1, cached.Cache().Len())

	assert.Equal(t, 1, cached.Cache().InvalidateLaw("law1"))
	_, err := cached.Exists(ctx, "law1", ref)
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)

	unknown := &countingValidator{err: yomikae.ErrUnknownLaw}
	cached = NewCachedValidator(unknown, time.Minute)
	for i := 0; i < 2; i++ {
		_, err := cached.Exists(ctx, "law1", ref)
		assert.ErrorIs(t, err, yomikae.ErrUnknownLaw)
	}
	assert.Equal(t, 1, unknown.calls)

	failing := &countingValidator{err: errors.New("disk gone")}
	cached = NewCachedValidator(failing, time.Minute)
	for i := 0; i < 2; i++ {
		_, err := cached.Exists(ctx, "law1", ref)
		require.Error(t, err)
	}
	assert.Equal(t, 2, failing.calls)
	assert.Equal(t, 0, cached.Cache().Len())
}

func TestLookupCacheExpiry(t *testing.T) {
	cache := NewLookupCache(time.Millisecond)
	cache.Set("a", LookupResult{exists: true})
	cache.Set("b", LookupResult{exists: false})
	time.Sleep(5 * time.Millisecond)

	_, ok := cache.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, cache.Cleanup())
	assert.Equal(t, 0, cache.Len())

	cache = NewLookupCache(time.Minute)
	cache.Set("a", LookupResult{exists: true})
	assert.Equal(t, 0, cache.Cleanup())
	assert.Equal(t, 1, cache.Len())
}

const indexerLawXML = `<Law><LawNum>令和元年法律第一号</LawNum><LawBody><LawTitle>試験法</LawTitle>
<MainProvision>
  <Article Num="1"><Paragraph Num="1"><ParagraphSentence><Sentence>目的。</Sentence></ParagraphSentence>
    <Item Num="1"><ItemSentence><Sentence>一</Sentence></ItemSentence></Item>
  </Paragraph></Article>
</MainProvision></LawBody></Law>`

func TestIndexer(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "501AC0000000001.xml"), []byte(indexerLawXML), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.xml"), []byte("<Law>"), 0644))

	entries := []LawEntry{
		{Name: "試験法", Num: "令和元年法律第一号", File: "501AC0000000001.xml"},
		{Name: "壊れた法", File: "broken.xml"},
	}

	store := NewMemory()
	ix := NewIndexer(store, nil)
	stats, err := ix.IndexAll(ctx, entries, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Attempted)
	assert.Equal(t, 1, stats.Indexed)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 3, stats.Provisions)

	v := NewValidator(store)
	ok, err := v.Exists(ctx, "501AC0000000001", yomikae.Reference{Article: "1", Paragraph: "1", Item: "1"})
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := ix.IndexOutline(ctx, "empty", lawxml.Outline{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	known, err := store.HasLaw(ctx, "empty")
	require.NoError(t, err)
	assert.True(t, known)
}

func TestLawList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
  {"name": "民法", "num": "明治二十九年法律第八十九号", "id": "129AC0000000089", "file": "129AC0000000089.xml", "date": "1896-04-27"}
]`), 0644))

	entries, err := LoadLawList(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "129AC0000000089", entries[0].LawID())
	assert.Equal(t, filepath.Join("work", "129AC0000000089.xml"), entries[0].FilePath("work"))
	assert.Equal(t, "foo", LawEntry{File: "dir/foo.xml"}.LawID())

	out := filepath.Join(t.TempDir(), "nested", "list.json")
	require.NoError(t, SaveLawList(out, entries))
	again, err := LoadLawList(out)
	require.NoError(t, err)
	assert.Equal(t, entries, again)

	_, err = LoadLawList(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
