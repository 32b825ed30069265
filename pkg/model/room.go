package model

import "time"

type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// ChatRoom pairs one doctor with one patient. Names and presence are
// denormalized onto the room so notification lookups need a single read.
type ChatRoom struct {
	ID              string    `json:"id" firestore:"-" bson:"_id"`
	DoctorID        string    `json:"doctorId" firestore:"doctorId" bson:"doctorId"`
	PatientID       string    `json:"patientId" firestore:"patientId" bson:"patientId"`
	DoctorName      string    `json:"doctorName" firestore:"doctorName" bson:"doctorName"`
	PatientName     string    `json:"patientName" firestore:"patientName" bson:"patientName"`
	IsDoctorOnline  bool      `json:"isDoctorOnline" firestore:"isDoctorOnline" bson:"isDoctorOnline"`
	IsPatientOnline bool      `json:"isPatientOnline" firestore:"isPatientOnline" bson:"isPatientOnline"`
	DoctorLastSeen  time.Time `json:"doctorLastSeen" firestore:"doctorLastSeen" bson:"doctorLastSeen"`
	PatientLastSeen time.Time `json:"patientLastSeen" firestore:"patientLastSeen" bson:"patientLastSeen"`
}

// SenderRole reports the role of userID in the room. Anyone who is not the
// doctor is treated as the patient.
func (r *ChatRoom) SenderRole(userID string) Role {
	if userID == r.DoctorID {
		return RoleDoctor
	}
	return RolePatient
}

// NameOf returns the display name stored for role.
func (r *ChatRoom) NameOf(role Role) string {
	if role == RoleDoctor {
		return r.DoctorName
	}
	return r.PatientName
}

// PresenceWrite is one room's share of a presence batch. The store stamps the
// matching lastSeen field with its own clock when the batch commits.
type PresenceWrite struct {
	RoomID   string
	Role     Role
	IsOnline bool
}
