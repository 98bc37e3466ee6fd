package postgres_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"pgregory.net/rapid"

	"github.com/finalsentence/server/internal/game/phrase"
	"github.com/finalsentence/server/internal/game/typing"
	"github.com/finalsentence/server/internal/storage"
	"github.com/finalsentence/server/internal/storage/postgres"
	"github.com/finalsentence/server/internal/testutil"
)

// testStore connects to TEST_DSN when set, otherwise starts a disposable
// container when TEST_CONTAINERS is set, otherwise skips.
func testStore(t *testing.T) *postgres.Store {
	t.Helper()
	ctx := context.Background()

	if dsn := os.Getenv("TEST_DSN"); dsn != "" {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			t.Fatalf("connecting to test DB: %v", err)
		}
		if _, err := pool.Exec(ctx, testutil.Schema); err != nil {
			t.Fatalf("applying schema: %v", err)
		}
		t.Cleanup(pool.Close)
		return postgres.NewStoreFromPool(pool)
	}

	if os.Getenv("TEST_CONTAINERS") == "" {
		t.Skip("TEST_DSN and TEST_CONTAINERS not set; skipping integration test")
	}
	pc := testutil.NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	return pc.Store
}

func uniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}

func savedPlayer(t *testing.T, store *postgres.Store, name string) storage.Player {
	t.Helper()
	hash, err := storage.HashPassword("password123")
	require.NoError(t, err)
	p, err := store.SavePlayer(context.Background(), storage.Player{
		ID:           uuid.NewString(),
		Name:         name,
		Avatar:       "ghost.png",
		PasswordHash: hash,
	})
	require.NoError(t, err)
	return p
}

func TestStore_PlayerRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	name := uniqueName("ana")
	created := savedPlayer(t, store, name)
	assert.False(t, created.CreatedAt.IsZero())

	byID, err := store.GetPlayer(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, name, byID.Name)
	assert.Equal(t, "ghost.png", byID.Avatar)

	byName, err := store.GetPlayerByName(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)
	assert.True(t, storage.CheckPassword("password123", byName.PasswordHash))
}

func TestStore_SavePlayer_DuplicateName(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	name := uniqueName("ana")
	savedPlayer(t, store, name)

	_, err := store.SavePlayer(ctx, storage.Player{
		ID: uuid.NewString(), Name: name, PasswordHash: "h",
	})
	assert.ErrorIs(t, err, storage.ErrDuplicate)
}

func TestStore_GetPlayer_NotFound(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	_, err := store.GetPlayer(ctx, uuid.NewString())
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetPlayerByName(ctx, uniqueName("ghost"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testRoomRecord(code string) storage.RoomRecord {
	return storage.RoomRecord{
		ID:         uuid.NewString(),
		Code:       code,
		Kind:       "public",
		Status:     "waiting",
		HostID:     uuid.NewString(),
		MaxPlayers: 10,
		Players: []storage.RoomPlayer{
			{ID: uuid.NewString(), Name: "ana", Status: "connected", Connected: true},
		},
	}
}

func testRoomCode() string {
	// Join codes are 6 chars in production; tests use longer unique ones to
	// avoid collisions between runs sharing a TEST_DSN database.
	return "T" + uuid.NewString()[:12]
}

func TestStore_RoomLifecycle(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	rec := testRoomRecord(testRoomCode())
	id, err := store.CreateRoom(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, id)

	got, err := store.GetRoomByCode(ctx, rec.Code)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "waiting", got.Status)
	require.Len(t, got.Players, 1)
	assert.Equal(t, "ana", got.Players[0].Name)
	assert.True(t, got.Players[0].Connected)
	assert.False(t, got.UpdatedAt.IsZero())

	got.Status = "playing"
	got.Round = 1
	got.Players = append(got.Players, storage.RoomPlayer{
		ID: uuid.NewString(), Name: "beto", Status: "playing", Connected: true,
	})
	require.NoError(t, store.UpdateRoom(ctx, got))

	again, err := store.GetRoom(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "playing", again.Status)
	assert.Equal(t, 1, again.Round)
	assert.Len(t, again.Players, 2)

	require.NoError(t, store.DeleteRoom(ctx, rec.ID))
	_, err = store.GetRoom(ctx, rec.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_CreateRoom_CodeCollision(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	code := testRoomCode()
	_, err := store.CreateRoom(ctx, testRoomRecord(code))
	require.NoError(t, err)

	_, err = store.CreateRoom(ctx, testRoomRecord(code))
	assert.ErrorIs(t, err, storage.ErrDuplicate)
}

func TestStore_UpdateRoom_NotFound(t *testing.T) {
	store := testStore(t)
	err := store.UpdateRoom(context.Background(), testRoomRecord(testRoomCode()))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_DeleteRoom_AbsentIsNoError(t *testing.T) {
	store := testStore(t)
	assert.NoError(t, store.DeleteRoom(context.Background(), uuid.NewString()))
}

func TestStore_MatchStatsAggregation(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	p1 := uuid.NewString()
	p2 := uuid.NewString()

	require.NoError(t, store.SaveMatch(ctx, storage.MatchRecord{
		ID: uuid.NewString(), RoomID: uuid.NewString(), WinnerID: p1,
		Stats: []typing.PlayerResult{
			{PlayerID: p1, Name: "ana", Status: typing.StatusCompleted, WPM: 40, Errors: 1, Progress: 100},
			{PlayerID: p2, Name: "beto", Status: typing.StatusEliminated, WPM: 0, Errors: 3, Progress: 0},
		},
		Phrases:         []string{"La sombra avanzaba silenciosa por el pasillo."},
		DurationSeconds: 31.5,
	}))
	require.NoError(t, store.SaveMatch(ctx, storage.MatchRecord{
		ID: uuid.NewString(), RoomID: uuid.NewString(), WinnerID: "",
		Stats: []typing.PlayerResult{
			{PlayerID: p1, Name: "ana", Status: typing.StatusEliminated, WPM: 20, Errors: 2, Progress: 60},
		},
		Phrases:         []string{"El susurro decía mi nombre detrás de la puerta."},
		DurationSeconds: 45,
	}))

	stats, err := store.GetPlayerStats(ctx, p1)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.GamesPlayed)
	assert.Equal(t, 1, stats.GamesWon)
	assert.InDelta(t, 30.0, stats.AvgWPM, 1e-9)
	assert.InDelta(t, 40.0, stats.BestWPM, 1e-9)
	assert.Equal(t, 3, stats.TotalErrors)

	stats, err = store.GetPlayerStats(ctx, p2)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.GamesPlayed)
	assert.Zero(t, stats.GamesWon)
	assert.Equal(t, 3, stats.TotalErrors)
}

func TestStore_PlayerStats_NoMatches(t *testing.T) {
	store := testStore(t)

	stats, err := store.GetPlayerStats(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.Equal(t, storage.PlayerStats{}, stats)
}

func TestStore_SeedAndListPhrases(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	text1 := fmt.Sprintf("El reloj marcó la hora %d que no existe.", time.Now().UnixNano())
	text2 := fmt.Sprintf("Nadie recordaba la puerta %d.", time.Now().UnixNano())

	inserted, updated, err := store.SeedPhrases(ctx, []phrase.Phrase{
		{Text: text1, Difficulty: "baja", Category: "terror"},
		{Text: "  " + text2 + "  ", Difficulty: "media", Category: "terror"},
		{Text: "   "},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	assert.Zero(t, updated)

	inserted, updated, err = store.SeedPhrases(ctx, []phrase.Phrase{
		{Text: text1, Difficulty: "alta", Category: "terror"},
	})
	require.NoError(t, err)
	assert.Zero(t, inserted)
	assert.Equal(t, 1, updated)

	phrases, err := store.GetPhrases(ctx, -1)
	require.NoError(t, err)

	byText := make(map[string]phrase.Phrase, len(phrases))
	for _, p := range phrases {
		byText[p.Text] = p
	}
	require.Contains(t, byText, text1)
	require.Contains(t, byText, text2)
	assert.Equal(t, "alta", byText[text1].Difficulty, "reseeding updates difficulty in place")
	assert.NotEmpty(t, byText[text1].ID)
}

// TestStore_SeedShippedPhrasePack runs the real content pack through the seed
// path, slug ids and all, exactly as cmd/seed does with its defaults.
func TestStore_SeedShippedPhrasePack(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	raw, err := os.ReadFile(filepath.Join("..", "..", "..", "content", "phrases.yaml"))
	require.NoError(t, err)

	var pack struct {
		Phrases []phrase.Phrase `yaml:"phrases"`
	}
	require.NoError(t, yaml.Unmarshal(raw, &pack))
	require.NotEmpty(t, pack.Phrases)

	inserted, updated, err := store.SeedPhrases(ctx, pack.Phrases)
	require.NoError(t, err)
	assert.Equal(t, len(pack.Phrases), inserted+updated)

	phrases, err := store.GetPhrases(ctx, -1)
	require.NoError(t, err)

	byText := make(map[string]phrase.Phrase, len(phrases))
	for _, p := range phrases {
		byText[p.Text] = p
	}
	for _, p := range pack.Phrases {
		require.Contains(t, byText, p.Text)
		assert.NotEmpty(t, byText[p.Text].ID)
	}
}

func TestStore_SeedKeepsCallerID(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	id := fmt.Sprintf("pack_%d", time.Now().UnixNano())
	text := fmt.Sprintf("La escalera contaba un peldaño de más a las %d.", time.Now().UnixNano())

	inserted, _, err := store.SeedPhrases(ctx, []phrase.Phrase{
		{ID: id, Text: text, Difficulty: "media", Category: "terror"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	phrases, err := store.GetPhrases(ctx, -1)
	require.NoError(t, err)

	var got phrase.Phrase
	for _, p := range phrases {
		if p.Text == text {
			got = p
		}
	}
	assert.Equal(t, id, got.ID, "caller-supplied id survives the insert")
}

func TestStore_GetPhrases_Limit(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	_, _, err := store.SeedPhrases(ctx, []phrase.Phrase{
		{Text: fmt.Sprintf("frase %d a", time.Now().UnixNano())},
		{Text: fmt.Sprintf("frase %d b", time.Now().UnixNano())},
	})
	require.NoError(t, err)

	phrases, err := store.GetPhrases(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, phrases, 1)
}

// TestStore_Property_PlayerRoundTrip verifies that Save followed by GetByID
// returns the record that was stored for arbitrary names and avatars.
func TestStore_Property_PlayerRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	rapid.Check(t, func(rt *rapid.T) {
		name := fmt.Sprintf("%s_%d",
			rapid.StringMatching(`[a-z]{3,12}`).Draw(rt, "name"), time.Now().UnixNano())
		avatar := rapid.SampledFrom([]string{"", "ghost.png", "skull.png", "bat.png"}).Draw(rt, "avatar")

		created, err := store.SavePlayer(ctx, storage.Player{
			ID: uuid.NewString(), Name: name, Avatar: avatar, PasswordHash: "h",
		})
		require.NoError(t, err)

		fetched, err := store.GetPlayer(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, name, fetched.Name)
		assert.Equal(t, avatar, fetched.Avatar)
	})
}
