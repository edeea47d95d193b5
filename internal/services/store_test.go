package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytakahashi/zikr-companion/internal/config"
	"github.com/ytakahashi/zikr-companion/internal/models"
	"github.com/ytakahashi/zikr-companion/internal/tracker"
)

func sampleState() *models.TrackerState {
	created := time.Date(2024, time.March, 10, 9, 30, 0, 0, time.UTC)
	state := tracker.DefaultState(created)
	state.CurrentCount = 12
	state.Mode = models.ModeInfinite
	state.LastResetDate = "2024-03-10"
	state.Settings.ReminderTime = "05:15"
	state.Tasks[0].CurrentCount = 33
	state.Tasks[0].IsCompleted = true
	state.Tasks[0].CompletedDates = []string{"2024-03-09", "2024-03-10"}
	state.Tasks = append(state.Tasks, models.ZikrTask{
		ID:              "custom-1",
		Title:           "Salawat",
		ArabicText:      "اللَّهُمَّ صَلِّ عَلَى مُحَمَّدٍ",
		Transliteration: "Allahumma salli ala Muhammad",
		Meaning:         "O Allah, send blessings upon Muhammad",
		TargetCount:     10,
		CompletedDates:  []string{},
		CreatedAt:       created.Add(time.Hour),
		IsCustom:        true,
	})
	return state
}

// exerciseStore checks the Store contract shared by every backend.
func exerciseStore(t *testing.T, store tracker.Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Load(ctx, "zikr:nobody")
	assert.ErrorIs(t, err, tracker.ErrStateNotFound)

	want := sampleState()
	require.NoError(t, store.Save(ctx, "zikr:alice", want))

	got, err := store.Load(ctx, "zikr:alice")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	want.CurrentCount = 0
	want.Tasks = want.Tasks[:1]
	require.NoError(t, store.Save(ctx, "zikr:alice", want))
	got, err = store.Load(ctx, "zikr:alice")
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentCount)
	assert.Len(t, got.Tasks, 1)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	state := sampleState()
	require.NoError(t, store.Save(ctx, "k", state))

	state.Tasks[0].CompletedDates[0] = "changed"
	got, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-09", got.Tasks[0].CompletedDates[0])
}

func TestFileStore_JSON(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "json")
	require.NoError(t, err)
	exerciseStore(t, store)
}

func TestFileStore_YAML(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "yaml")
	require.NoError(t, err)
	exerciseStore(t, store)

	data, err := os.ReadFile(store.Path("zikr:alice"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "title: Morning Tasbih")
}

func TestFileStore_KeysStayInDir(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "json")
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(store.Path("../../etc/passwd")))
	assert.Equal(t, dir, filepath.Dir(store.Path("zikr:user/with/slashes")))
	assert.Equal(t, dir, filepath.Dir(store.Path("..")))
}

func TestFileStore_DistinctKeysDistinctFiles(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "json")
	require.NoError(t, err)

	keys := []string{"zikr:a:b", "zikr:a_b", "zikr:a/b", "zikr:a\\b", "zikr:a..b", "zikr:a__b"}
	seen := map[string]string{}
	for _, k := range keys {
		p := store.Path(k)
		prev, dup := seen[p]
		assert.False(t, dup, "%q and %q share %s", prev, k, p)
		seen[p] = k
	}

	ctx := context.Background()
	state := sampleState()
	state.CurrentCount = 1
	require.NoError(t, store.Save(ctx, "zikr:a:b", state))

	_, err = store.Load(ctx, "zikr:a_b")
	assert.ErrorIs(t, err, tracker.ErrStateNotFound)
	got, err := store.Load(ctx, "zikr:a:b")
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentCount)
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "json")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.Path("bad"), []byte("{not json"), 0o644))

	_, err = store.Load(context.Background(), "bad")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, tracker.ErrStateNotFound)
}

func TestNewFileStore_RejectsUnknownFormat(t *testing.T) {
	_, err := NewFileStore(t.TempDir(), "toml")
	assert.Error(t, err)
}

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStoreFromClient(client), mr
}

func TestRedisStore(t *testing.T) {
	store, mr := setupTestRedis(t)
	defer mr.Close()
	defer store.Close()

	exerciseStore(t, store)
	assert.True(t, mr.Exists("zikr:alice"))
}

func TestRedisStore_CorruptValue(t *testing.T) {
	store, mr := setupTestRedis(t)
	defer mr.Close()
	defer store.Close()

	require.NoError(t, mr.Set("zikr:broken", "not-json"))
	_, err := store.Load(context.Background(), "zikr:broken")
	assert.Error(t, err)
}

func TestRedisStore_ServerDown(t *testing.T) {
	store, mr := setupTestRedis(t)
	defer store.Close()
	mr.Close()

	err := store.Save(context.Background(), "zikr:alice", sampleState())
	assert.Error(t, err)
}

func TestNewRedisStore_Ping(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	store, err := NewRedisStore(context.Background(), RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	defer store.Close()
}

func TestFirestoreStore(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set, skipping Firestore test")
	}
	ctx := context.Background()
	store, err := NewFirestoreStore(ctx, "zikr-test", "", "trackers-test")
	require.NoError(t, err)
	defer store.Close()
	defer store.Delete(ctx, "zikr:alice")

	exerciseStore(t, store)
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()

	store, closeFn, err := NewStore(ctx, &config.Config{StoreBackend: config.BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)
	assert.NoError(t, closeFn())

	store, _, err = NewStore(ctx, &config.Config{StoreBackend: config.BackendFile, DataDir: t.TempDir(), DataFormat: "yaml"})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	store, closeFn, err = NewStore(ctx, &config.Config{StoreBackend: config.BackendRedis, RedisAddress: mr.Addr()})
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, store)
	assert.NoError(t, closeFn())

	_, _, err = NewStore(ctx, &config.Config{StoreBackend: "sqlite"})
	assert.Error(t, err)
}
