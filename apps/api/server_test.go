package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mahaj/carechat/pkg/auth"
	"github.com/mahaj/carechat/pkg/errs"
	"github.com/mahaj/carechat/pkg/model"
	"github.com/mahaj/carechat/pkg/presence"
	"github.com/mahaj/carechat/pkg/snowflake"
	"github.com/mahaj/carechat/pkg/store"
)

type memRooms struct {
	mu    sync.Mutex
	rooms map[string]model.ChatRoom
}

func (m *memRooms) GetRoom(_ context.Context, id string) (*model.ChatRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &room, nil
}

func (m *memRooms) RoomIDsByRole(_ context.Context, role model.Role, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, room := range m.rooms {
		if (role == model.RoleDoctor && room.DoctorID == userID) || (role == model.RolePatient && room.PatientID == userID) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memRooms) CommitPresence(context.Context, []model.PresenceWrite) error { return nil }

func (m *memRooms) CreateRoom(_ context.Context, room *model.ChatRoom) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[room.ID] = *room
	return nil
}

type memMessages struct {
	saved []model.Message
}

func (m *memMessages) SaveMessage(_ context.Context, msg *model.Message) error {
	m.saved = append(m.saved, *msg)
	return nil
}

func (m *memMessages) ListMessages(_ context.Context, roomID string, limit int) ([]model.Message, error) {
	var out []model.Message
	for i := len(m.saved) - 1; i >= 0 && len(out) < limit; i-- {
		if m.saved[i].RoomID == roomID {
			out = append(out, m.saved[i])
		}
	}
	return out, nil
}

type events struct {
	mu       sync.Mutex
	messages []model.MessageCreated
	statuses []model.StatusUpdated
	err      error
}

func (e *events) PublishMessageCreated(_ context.Context, ev model.MessageCreated) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.messages = append(e.messages, ev)
	return nil
}

func (e *events) PublishStatusUpdated(_ context.Context, ev model.StatusUpdated) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.statuses = append(e.statuses, ev)
	return nil
}

type testAPI struct {
	handler  http.Handler
	issuer   *auth.Issuer
	rooms    *memRooms
	messages *memMessages
	events   *events
	redis    *store.Redis
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	issuer, err := auth.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	api := &testAPI{
		issuer: issuer,
		rooms: &memRooms{rooms: map[string]model.ChatRoom{
			"room-1": {ID: "room-1", DoctorID: "doctor_lee", PatientID: "patient_kim", DoctorName: "Dr. Lee", PatientName: "Kim"},
		}},
		messages: &memMessages{},
		events:   &events{},
		redis:    store.NewRedis(client, "test"),
	}
	s := &server{
		rooms:    api.rooms,
		messages: api.messages,
		tokens:   api.redis,
		statuses: api.redis,
		presence: presence.NewWriter(api.redis, api.events, zap.NewNop()),
		events:   api.events,
		ids:      node,
		auth:     issuer,
		log:      zap.NewNop(),
	}
	api.handler = s.routes()
	return api
}

func (a *testAPI) do(t *testing.T, user, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		token, err := a.issuer.GenerateToken(user)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func TestLogin(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, "", http.MethodPost, "/login", LoginRequest{UserID: "doctor_lee"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	claims, err := api.issuer.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "doctor_lee", claims.UserID)

	rec = api.do(t, "", http.MethodPost, "/login", LoginRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequiresAuth(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, "", http.MethodGet, "/rooms", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec = httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateMessageStoresAndEmits(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, "doctor_lee", http.MethodPost, "/rooms/room-1/messages", CreateMessageRequest{
		ReceiverID: "patient_kim", Type: model.TypeAudio, Content: "https://cdn/a.m4a",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var msg model.Message
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&msg))
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "doctor_lee", msg.SenderID)
	assert.False(t, msg.Timestamp.IsZero())

	require.Len(t, api.messages.saved, 1)
	assert.Equal(t, msg.ID, api.messages.saved[0].ID)
	require.Len(t, api.events.messages, 1)
	ev := api.events.messages[0]
	assert.Equal(t, "room-1", ev.RoomID)
	assert.Equal(t, msg.ID, ev.MessageID)
	assert.Equal(t, "patient_kim", ev.Message.ReceiverID)
	assert.Equal(t, model.TypeAudio, ev.Message.Type)
}

func TestCreateMessagePublishFailureKeepsMessage(t *testing.T) {
	api := newTestAPI(t)
	api.events.err = errors.New("broker down")

	rec := api.do(t, "patient_kim", http.MethodPost, "/rooms/room-1/messages", CreateMessageRequest{
		ReceiverID: "doctor_lee", Type: model.TypeText, Content: "hello",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, api.messages.saved, 1)
}

func TestStatusPublishFailureKeepsStatus(t *testing.T) {
	api := newTestAPI(t)
	api.events.err = errors.New("broker down")
	online := true

	rec := api.do(t, "doctor_lee", http.MethodPut, "/status", StatusRequest{IsOnline: &online})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, "patient_kim", http.MethodGet, "/users/doctor_lee/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var st model.UserStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	assert.True(t, st.IsOnline)

	rec = api.do(t, "doctor_lee", http.MethodDelete, "/status", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, api.events.statuses)
}

func TestCreateMessageRejects(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, "stranger", http.MethodPost, "/rooms/room-1/messages", CreateMessageRequest{Type: model.TypeText})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, "doctor_lee", http.MethodPost, "/rooms/room-1/messages", CreateMessageRequest{Content: "no type"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, "doctor_lee", http.MethodPost, "/rooms/missing/messages", CreateMessageRequest{Type: model.TypeText})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Empty(t, api.messages.saved)
	assert.Empty(t, api.events.messages)
}

func TestHistory(t *testing.T) {
	api := newTestAPI(t)
	for _, content := range []string{"one", "two", "three"} {
		rec := api.do(t, "doctor_lee", http.MethodPost, "/rooms/room-1/messages", CreateMessageRequest{Type: model.TypeText, Content: content})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := api.do(t, "patient_kim", http.MethodGet, "/rooms/room-1/messages?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got []model.Message
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 2)
	assert.Equal(t, "three", got[0].Content)
	assert.Equal(t, "two", got[1].Content)

	rec = api.do(t, "patient_kim", http.MethodGet, "/rooms/room-1/messages?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, "stranger", http.MethodGet, "/rooms/room-1/messages", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStatusLifecycle(t *testing.T) {
	api := newTestAPI(t)
	online, offline := true, false

	rec := api.do(t, "doctor_lee", http.MethodPut, "/status", StatusRequest{IsOnline: &online})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(t, "doctor_lee", http.MethodPut, "/status", StatusRequest{IsOnline: &offline})
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, api.events.statuses, 2)
	assert.Nil(t, api.events.statuses[0].Before)
	require.NotNil(t, api.events.statuses[1].Before)
	assert.True(t, api.events.statuses[1].Before.IsOnline)
	assert.False(t, api.events.statuses[1].After.IsOnline)

	rec = api.do(t, "patient_kim", http.MethodGet, "/users/doctor_lee/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var st model.UserStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	assert.False(t, st.IsOnline)

	rec = api.do(t, "doctor_lee", http.MethodDelete, "/status", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, api.events.statuses, 3)
	assert.Nil(t, api.events.statuses[2].After)

	rec = api.do(t, "patient_kim", http.MethodGet, "/users/doctor_lee/status", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, "doctor_lee", http.MethodPut, "/status", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetToken(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, "patient_kim", http.MethodPut, "/tokens", TokenRequest{Token: "device-1"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	token, err := api.redis.GetToken(context.Background(), "patient_kim")
	require.NoError(t, err)
	assert.Equal(t, "device-1", token)

	rec = api.do(t, "patient_kim", http.MethodPut, "/tokens", TokenRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRooms(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, "doctor_lee", http.MethodPost, "/rooms", CreateRoomRequest{
		DoctorID: "doctor_lee", PatientID: "patient_park", DoctorName: "Dr. Lee", PatientName: "Park",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created model.ChatRoom
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)

	rec = api.do(t, "outsider", http.MethodPost, "/rooms", CreateRoomRequest{DoctorID: "doctor_lee", PatientID: "patient_park"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, "doctor_lee", http.MethodPost, "/rooms", CreateRoomRequest{DoctorID: "doctor_lee"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, "doctor_lee", http.MethodGet, "/rooms", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rooms []model.ChatRoom
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rooms))
	ids := make([]string, 0, len(rooms))
	for _, r := range rooms {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []string{"room-1", created.ID}, ids)
}
