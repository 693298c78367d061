package domain

import "time"

type UserRole string

const (
	UserRolePatient   UserRole = "PATIENT"
	UserRoleTherapist UserRole = "THERAPIST"
	UserRoleAdmin     UserRole = "ADMIN"
)

type TherapistTier string

const (
	TherapistTierStandard TherapistTier = "STANDARD"
	TherapistTierSenior   TherapistTier = "SENIOR"
	TherapistTierExpert   TherapistTier = "EXPERT"
)

type User struct {
	ID           string        `json:"id"`
	Email        string        `json:"email"`
	PhoneNumber  string        `json:"phone_number"`
	PasswordHash string        `json:"-"`
	Name         string        `json:"name"`
	Role         UserRole      `json:"role"`
	Tier         TherapistTier `json:"tier,omitempty"` // therapists only
	Specialty    string        `json:"specialty,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}
