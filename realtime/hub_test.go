package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mahlzeit/globals"
	"mahlzeit/mq"
)

func withUser(userID string, h httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		h(w, r.WithContext(context.WithValue(r.Context(), globals.UserIDKey, userID)), ps)
	}
}

type frame struct {
	Event string                 `json:"event"`
	Date  string                 `json:"date"`
	Plan  map[string]interface{} `json:"plan"`
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var f frame
	require.NoError(t, json.Unmarshal(raw, &f))
	return f
}

func TestServeMealPlan(t *testing.T) {
	hub := NewHub()
	bus := mq.NewBus()
	bus.Subscribe(hub.OnEvent)

	snapshot := func(_ context.Context, userID, date string) (interface{}, error) {
		return map[string]interface{}{"userId": userID, "date": date, "note": "initial"}, nil
	}
	router := httprouter.New()
	router.GET("/ws/mealplans/:date", withUser("u1", hub.ServeMealPlan(snapshot)))
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/mealplans/2024-05-01"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	f := readFrame(t, conn)
	assert.Equal(t, "snapshot", f.Event)
	assert.Equal(t, "initial", f.Plan["note"])
	assert.Equal(t, 1, hub.Subscribers(Topic("u1", "2024-05-01")))

	// other users and other dates are not delivered
	require.NoError(t, bus.Emit("mealplan-updated", mq.Index{EntityType: "mealplan", UserID: "u2", EntityId: "2024-05-01", Payload: map[string]string{"note": "wrong user"}}))
	require.NoError(t, bus.Emit("mealplan-updated", mq.Index{EntityType: "mealplan", UserID: "u1", EntityId: "2024-05-02", Payload: map[string]string{"note": "wrong date"}}))
	require.NoError(t, bus.Emit("mealplan-updated", mq.Index{EntityType: "mealplan", UserID: "u1", EntityId: "2024-05-01", Payload: map[string]string{"note": "changed"}}))

	f = readFrame(t, conn)
	assert.Equal(t, "mealplan-updated", f.Event)
	assert.Equal(t, "changed", f.Plan["note"])

	conn.Close()
	assert.Eventually(t, func() bool {
		return hub.Subscribers(Topic("u1", "2024-05-01")) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServeMealPlanRejectsBadDate(t *testing.T) {
	hub := NewHub()
	router := httprouter.New()
	router.GET("/ws/mealplans/:date", withUser("u1", hub.ServeMealPlan(nil)))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/mealplans/yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	assert.Equal(t, 0, NewHub().Publish("nobody/2024-01-01", map[string]int{"a": 1}))
}
