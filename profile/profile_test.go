package profile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"mahlzeit/globals"
	"mahlzeit/models"
)

type memStore map[string]models.UserProfile

func (m memStore) Get(_ context.Context, userID string) (*models.UserProfile, error) {
	p, ok := m[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m memStore) Save(_ context.Context, p *models.UserProfile) error {
	m[p.UserID] = *p
	return nil
}

func TestDefaults(t *testing.T) {
	p, err := NewService(memStore{}).Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, p.Features.ShowSport)
	assert.True(t, p.Features.ShowAISearch)
	assert.False(t, p.Features.SyncIntervals)
	assert.False(t, p.IntervalsConfigured())
}

func TestIntervalsCredentials(t *testing.T) {
	ctx := context.Background()
	store := memStore{}
	svc := NewService(store)

	_, err := svc.SetIntervals(ctx, "u1", " i12345 ", "key")
	require.NoError(t, err)
	athlete, key, ok, err := svc.Credentials(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "i12345", athlete)
	assert.Equal(t, "key", key)
	assert.True(t, store["u1"].Features.SyncIntervals)

	_, err = svc.SetIntervals(ctx, "u1", "", "")
	require.NoError(t, err)
	_, _, ok, err = svc.Credentials(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, store["u1"].Features.SyncIntervals)
}

func TestSyncNeedsCredentials(t *testing.T) {
	svc := NewService(memStore{})
	p, err := svc.SetFeatures(context.Background(), "u1", models.FeatureToggles{ShowSport: true, SyncIntervals: true})
	require.NoError(t, err)
	assert.False(t, p.Features.SyncIntervals)
	assert.True(t, p.Features.ShowSport)
}

func TestHandlersNeverExposeKey(t *testing.T) {
	h := NewHandlers(NewService(memStore{}))
	withUser := func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			next(w, r.WithContext(context.WithValue(r.Context(), globals.UserIDKey, "u1")), ps)
		}
	}
	router := httprouter.New()
	router.GET("/profile", withUser(h.GetProfile))
	router.PUT("/profile/intervals", withUser(h.EditIntervals))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/profile/intervals",
		strings.NewReader(`{"athleteId":"i1","apiKey":"super-secret"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "super-secret")
	assert.Contains(t, rec.Body.String(), `"intervalsConfigured":true`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profile", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "super-secret")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/profile/intervals",
		strings.NewReader(`{"athleteId":"i1"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMongoStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("decode", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "mahlzeit.profiles", mtest.FirstBatch, bson.D{
			{Key: "userId", Value: "u1"},
			{Key: "features", Value: bson.D{{Key: "showSport", Value: true}}},
			{Key: "intervalsAthleteId", Value: "i9"},
			{Key: "intervalsApiKey", Value: "k"},
		}))
		p, err := NewMongoStore(mt.Coll).Get(context.Background(), "u1")
		require.NoError(t, err)
		assert.True(t, p.Features.ShowSport)
		assert.False(t, p.Features.ShowNotes)
		assert.True(t, p.IntervalsConfigured())
	})

	mt.Run("missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "mahlzeit.profiles", mtest.FirstBatch))
		_, err := NewMongoStore(mt.Coll).Get(context.Background(), "u1")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
