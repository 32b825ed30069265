package store

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mahaj/carechat/pkg/errs"
	"github.com/mahaj/carechat/pkg/model"
)

func TestRoleColumn(t *testing.T) {
	col, err := roleColumn(model.RoleDoctor, "doctor_id", "patient_id")
	require.NoError(t, err)
	assert.Equal(t, "doctor_id", col)

	col, err = roleColumn(model.RolePatient, "doctor_id", "patient_id")
	require.NoError(t, err)
	assert.Equal(t, "patient_id", col)

	_, err = roleColumn("nurse", "doctor_id", "patient_id")
	assert.ErrorIs(t, err, errs.ErrBadRequest)
}

func TestPresenceFields(t *testing.T) {
	online, seen, err := presenceFields(model.RolePatient, "isDoctorOnline", "doctorLastSeen", "isPatientOnline", "patientLastSeen")
	require.NoError(t, err)
	assert.Equal(t, "isPatientOnline", online)
	assert.Equal(t, "patientLastSeen", seen)

	_, _, err = presenceFields("", "a", "b", "c", "d")
	assert.ErrorIs(t, err, errs.ErrBadRequest)
}

func TestFirestoreNotFound(t *testing.T) {
	assert.ErrorIs(t, notFound(status.Error(codes.NotFound, "no document")), errs.ErrNotFound)

	other := status.Error(codes.Unavailable, "try again")
	assert.Equal(t, other, notFound(other))

	plain := errors.New("boom")
	assert.Equal(t, plain, notFound(plain))
}

func sampleBatch() []model.PresenceWrite {
	// R1 appears in both lists when the user is doctor and patient of it.
	return []model.PresenceWrite{
		{RoomID: "R1", Role: model.RoleDoctor, IsOnline: true},
		{RoomID: "R2", Role: model.RoleDoctor, IsOnline: true},
		{RoomID: "R1", Role: model.RolePatient, IsOnline: true},
	}
}

func TestPresenceStatements(t *testing.T) {
	stmts, err := presenceStatements(sampleBatch())
	require.NoError(t, err)

	assert.Equal(t, []cqlStatement{
		{stmt: `UPDATE chat_rooms SET is_doctor_online = ?, doctor_last_seen = toTimestamp(now()) WHERE id = ?`, args: []interface{}{true, "R1"}},
		{stmt: `UPDATE chat_rooms SET is_doctor_online = ?, doctor_last_seen = toTimestamp(now()) WHERE id = ?`, args: []interface{}{true, "R2"}},
		{stmt: `UPDATE chat_rooms SET is_patient_online = ?, patient_last_seen = toTimestamp(now()) WHERE id = ?`, args: []interface{}{true, "R1"}},
	}, stmts)

	stmts, err = presenceStatements([]model.PresenceWrite{{RoomID: "R9", Role: model.RolePatient}})
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Equal(t, []interface{}{false, "R9"}, stmts[0].args)

	stmts, err = presenceStatements(nil)
	require.NoError(t, err)
	assert.Empty(t, stmts)

	_, err = presenceStatements([]model.PresenceWrite{{RoomID: "R1", Role: "nurse"}})
	assert.ErrorIs(t, err, errs.ErrBadRequest)
}

func TestPresenceModels(t *testing.T) {
	models, err := presenceModels(sampleBatch())
	require.NoError(t, err)
	require.Len(t, models, 3)

	want := []struct {
		room, online, seen string
	}{
		{"R1", "isDoctorOnline", "doctorLastSeen"},
		{"R2", "isDoctorOnline", "doctorLastSeen"},
		{"R1", "isPatientOnline", "patientLastSeen"},
	}
	for i, w := range want {
		m, ok := models[i].(*mongo.UpdateOneModel)
		require.True(t, ok)
		assert.Equal(t, bson.M{"_id": w.room}, m.Filter)
		assert.Equal(t, mongo.Pipeline{{{Key: "$set", Value: bson.D{
			{Key: w.online, Value: true},
			{Key: w.seen, Value: "$$NOW"},
		}}}}, m.Update)
	}

	models, err = presenceModels(nil)
	require.NoError(t, err)
	assert.Empty(t, models)

	_, err = presenceModels([]model.PresenceWrite{{RoomID: "R1"}})
	assert.ErrorIs(t, err, errs.ErrBadRequest)
}

func TestPresenceUpdates(t *testing.T) {
	updates, err := presenceUpdates(sampleBatch())
	require.NoError(t, err)

	assert.Equal(t, []roomUpdate{
		{roomID: "R1", fields: []firestore.Update{{Path: "isDoctorOnline", Value: true}, {Path: "doctorLastSeen", Value: firestore.ServerTimestamp}}},
		{roomID: "R2", fields: []firestore.Update{{Path: "isDoctorOnline", Value: true}, {Path: "doctorLastSeen", Value: firestore.ServerTimestamp}}},
		{roomID: "R1", fields: []firestore.Update{{Path: "isPatientOnline", Value: true}, {Path: "patientLastSeen", Value: firestore.ServerTimestamp}}},
	}, updates)

	updates, err = presenceUpdates(nil)
	require.NoError(t, err)
	assert.Empty(t, updates)
}

func TestCommitPresenceEmptyBatchIsNoop(t *testing.T) {
	ctx := context.Background()
	// Nil clients would panic on any call, so reaching nil proves nothing was sent.
	assert.NoError(t, (&ScyllaRooms{}).CommitPresence(ctx, nil))
	assert.NoError(t, (&MongoRooms{}).CommitPresence(ctx, []model.PresenceWrite{}))
	assert.NoError(t, (&Firestore{}).CommitPresence(ctx, nil))
}
