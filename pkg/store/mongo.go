package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mahaj/carechat/pkg/errs"
	"github.com/mahaj/carechat/pkg/model"
)

// MongoRooms keeps chat rooms in a MongoDB collection. Presence batches run
// in a transaction, so the deployment must be a replica set.
type MongoRooms struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func NewMongoRooms(ctx context.Context, client *mongo.Client, database string) (*MongoRooms, error) {
	coll := client.Database(database).Collection("chatRooms")
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "doctorId", Value: 1}}, Options: options.Index().SetName("doctor_idx")},
		{Keys: bson.D{{Key: "patientId", Value: 1}}, Options: options.Index().SetName("patient_idx")},
	})
	if err != nil {
		return nil, fmt.Errorf("create room indexes: %w", err)
	}
	return &MongoRooms{client: client, coll: coll}, nil
}

func (r *MongoRooms) GetRoom(ctx context.Context, roomID string) (*model.ChatRoom, error) {
	var room model.ChatRoom
	if err := r.coll.FindOne(ctx, bson.M{"_id": roomID}).Decode(&room); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &room, nil
}

func (r *MongoRooms) RoomIDsByRole(ctx context.Context, role model.Role, userID string) ([]string, error) {
	field, err := roleColumn(role, "doctorId", "patientId")
	if err != nil {
		return nil, err
	}
	cur, err := r.coll.Find(ctx, bson.M{field: userID}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var ids []string
	for cur.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		ids = append(ids, doc.ID)
	}
	return ids, cur.Err()
}

// CommitPresence stamps lastSeen with the server's $$NOW inside one
// transaction.
func (r *MongoRooms) CommitPresence(ctx context.Context, writes []model.PresenceWrite) error {
	models, err := presenceModels(writes)
	if err != nil || len(models) == 0 {
		return err
	}

	sess, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return r.coll.BulkWrite(sc, models, options.BulkWrite().SetOrdered(true))
	})
	return err
}

func presenceModels(writes []model.PresenceWrite) ([]mongo.WriteModel, error) {
	models := make([]mongo.WriteModel, 0, len(writes))
	for _, w := range writes {
		online, seen, err := presenceFields(w.Role, "isDoctorOnline", "doctorLastSeen", "isPatientOnline", "patientLastSeen")
		if err != nil {
			return nil, err
		}
		update := mongo.Pipeline{{{Key: "$set", Value: bson.D{
			{Key: online, Value: w.IsOnline},
			{Key: seen, Value: "$$NOW"},
		}}}}
		models = append(models, mongo.NewUpdateOneModel().SetFilter(bson.M{"_id": w.RoomID}).SetUpdate(update))
	}
	return models, nil
}

func (r *MongoRooms) CreateRoom(ctx context.Context, room *model.ChatRoom) error {
	_, err := r.coll.InsertOne(ctx, room)
	return err
}

func presenceFields(role model.Role, doctorOnline, doctorSeen, patientOnline, patientSeen string) (string, string, error) {
	switch role {
	case model.RoleDoctor:
		return doctorOnline, doctorSeen, nil
	case model.RolePatient:
		return patientOnline, patientSeen, nil
	}
	return "", "", fmt.Errorf("%w: role %q", errs.ErrBadRequest, role)
}
