package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
)

func TestNewSourceStore(t *testing.T) {
	store := NewSourceStore()
	require.NotNil(t, store)
	assert.NotNil(t, store.sources)
}

func TestSourceStore_SaveAndGet(t *testing.T) {
	store := NewSourceStore()
	ctx := context.Background()

	source := domain.NewSource("src-1", domain.SourceKindLocal, "My Documents")
	source.ScopePaths = []string{"/home/user/docs"}
	source.IncludePatterns = []string{"*.md"}

	require.NoError(t, store.Save(ctx, source))

	saved, err := store.Get(ctx, "src-1")
	require.NoError(t, err)
	assert.Equal(t, "My Documents", saved.Name)
	assert.Equal(t, domain.SourceKindLocal, saved.Kind)
	assert.Equal(t, []string{"/home/user/docs"}, saved.ScopePaths)
}

func TestSourceStore_Save_Update(t *testing.T) {
	store := NewSourceStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.NewSource("src-1", domain.SourceKindLocal, "Original")))
	require.NoError(t, store.Save(ctx, domain.NewSource("src-1", domain.SourceKindMail, "Updated")))

	saved, err := store.Get(ctx, "src-1")
	require.NoError(t, err)
	assert.Equal(t, "Updated", saved.Name)
	assert.Equal(t, domain.SourceKindMail, saved.Kind)
}

func TestSourceStore_ReturnsCopies(t *testing.T) {
	store := NewSourceStore()
	ctx := context.Background()
	source := domain.NewSource("src-1", domain.SourceKindLocal, "Docs")
	source.ScopePaths = []string{"/a"}
	require.NoError(t, store.Save(ctx, source))

	source.ScopePaths[0] = "/mutated"
	got, err := store.Get(ctx, "src-1")
	require.NoError(t, err)
	got.ScopePaths[0] = "/also-mutated"

	again, err := store.Get(ctx, "src-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"/a"}, again.ScopePaths)
}

func TestSourceStore_Get_NotFound(t *testing.T) {
	store := NewSourceStore()

	source, err := store.Get(context.Background(), "nonexistent")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, source)
}

func TestSourceStore_Delete(t *testing.T) {
	store := NewSourceStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domain.NewSource("src-1", domain.SourceKindLocal, "Docs")))

	require.NoError(t, store.Delete(ctx, "src-1"))

	_, err := store.Get(ctx, "src-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "src-1"), domain.ErrNotFound)
}

func TestSourceStore_List_Sorted(t *testing.T) {
	store := NewSourceStore()
	ctx := context.Background()
	for _, s := range []domain.Source{
		domain.NewSource("3", domain.SourceKindLocal, "charlie"),
		domain.NewSource("1", domain.SourceKindLocal, "alpha"),
		domain.NewSource("2", domain.SourceKindMail, "bravo"),
	} {
		require.NoError(t, store.Save(ctx, s))
	}

	list, err := store.List(ctx)

	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "bravo", list[1].Name)
	assert.Equal(t, "charlie", list[2].Name)
}

func TestSourceStore_List_Empty(t *testing.T) {
	list, err := NewSourceStore().List(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestSourceStore_ConcurrentAccess(t *testing.T) {
	store := NewSourceStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			id := string(rune('a' + i%26))
			_ = store.Save(ctx, domain.NewSource(id, domain.SourceKindLocal, id))
		}()
		go func() {
			defer wg.Done()
			_, _ = store.List(ctx)
		}()
	}
	wg.Wait()

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(list), 26)
}
