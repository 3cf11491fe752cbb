package models

import "time"

// Appointment status lifecycle, owned here and mirrored by clients.
const (
	AppointmentPending    = "pending"
	AppointmentConfirmed  = "confirmed"
	AppointmentInProgress = "in_progress"
	AppointmentCompleted  = "completed"
	AppointmentCancelled  = "cancelled"
)

// Slot is a bookable window published by a doctor.
type Slot struct {
	ID        string `json:"id" bson:"id"`
	DoctorID  string `json:"doctorId" bson:"doctorId"`
	Date      string `json:"date" bson:"date"` // YYYY-MM-DD
	Start     string `json:"start" bson:"start"`
	End       string `json:"end,omitempty" bson:"end,omitempty"`
	Capacity  int    `json:"capacity" bson:"capacity"`
	CreatedAt int64  `json:"createdAt" bson:"createdAt"`
}

type Appointment struct {
	ID          string    `json:"id" bson:"id"`
	SlotID      string    `json:"slotId,omitempty" bson:"slotId,omitempty"`
	DoctorID    string    `json:"doctorId" bson:"doctorId"`
	DoctorName  string    `json:"doctorName" bson:"doctorName"`
	PatientID   string    `json:"patientId" bson:"patientId"`
	PatientName string    `json:"patientName" bson:"patientName"`
	Date        string    `json:"date" bson:"date"`
	Start       string    `json:"start" bson:"start"`
	DurationMin int       `json:"durationMin" bson:"durationMin"`
	Reason      string    `json:"reason,omitempty" bson:"reason,omitempty"`
	Status      string    `json:"status" bson:"status"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Extension request states.
const (
	ExtensionRequested = "requested"
	ExtensionAccepted  = "accepted"
	ExtensionDeclined  = "declined"
)

// ExtensionRequest asks the counterpart for extra minutes mid-consultation.
type ExtensionRequest struct {
	ID            string    `json:"id" bson:"id"`
	AppointmentID string    `json:"appointmentId" bson:"appointmentId"`
	RequestedBy   string    `json:"requestedBy" bson:"requestedBy"`
	ExtraMinutes  int       `json:"extraMinutes" bson:"extraMinutes"`
	Status        string    `json:"status" bson:"status"`
	DecidedBy     string    `json:"decidedBy,omitempty" bson:"decidedBy,omitempty"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
	DecidedAt     time.Time `json:"decidedAt,omitempty" bson:"decidedAt,omitempty"`
}
