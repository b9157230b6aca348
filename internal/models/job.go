package models

import (
	"time"

	"gorm.io/gorm"
)

type EmploymentType string

const (
	EmploymentFullTime   EmploymentType = "full_time"
	EmploymentPartTime   EmploymentType = "part_time"
	EmploymentContract   EmploymentType = "contract"
	EmploymentInternship EmploymentType = "internship"
	EmploymentTemporary  EmploymentType = "temporary"
)

// ValidEmploymentType reports whether t is one of the known employment types
func ValidEmploymentType(t EmploymentType) bool {
	switch t {
	case EmploymentFullTime, EmploymentPartTime, EmploymentContract, EmploymentInternship, EmploymentTemporary:
		return true
	}
	return false
}

type JobStatus string

const (
	JobOpen   JobStatus = "open"
	JobClosed JobStatus = "closed"
)

type Job struct {
	ID       string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PosterID string `gorm:"type:varchar(36);not null;index" json:"poster_id"`
	Poster   *User  `gorm:"foreignKey:PosterID" json:"poster,omitempty"`

	Title          string         `gorm:"not null" json:"title"`
	Company        string         `gorm:"not null" json:"company"`
	Location       string         `json:"location"`
	Remote         bool           `gorm:"default:false" json:"remote"`
	EmploymentType EmploymentType `gorm:"type:varchar(32);not null;index" json:"employment_type"`
	Description    string         `gorm:"type:text;not null" json:"description"`
	Skills         []string       `gorm:"type:text;serializer:json" json:"skills"`
	SalaryMin      *int           `json:"salary_min,omitempty"`
	SalaryMax      *int           `json:"salary_max,omitempty"`
	Status         JobStatus      `gorm:"type:varchar(16);not null;default:open;index" json:"status"`

	ApplicationCount int `gorm:"default:0" json:"application_count"`

	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = generateUUID()
	}
	if j.Status == "" {
		j.Status = JobOpen
	}
	return nil
}

type ApplicationStatus string

const (
	ApplicationSubmitted ApplicationStatus = "submitted"
	ApplicationReviewing ApplicationStatus = "reviewing"
	ApplicationInterview ApplicationStatus = "interview"
	ApplicationOffered   ApplicationStatus = "offered"
	ApplicationRejected  ApplicationStatus = "rejected"
	ApplicationWithdrawn ApplicationStatus = "withdrawn"
)

// PosterSettable reports whether the job poster may move an application into status s.
// Withdrawal belongs to the applicant.
func (s ApplicationStatus) PosterSettable() bool {
	switch s {
	case ApplicationReviewing, ApplicationInterview, ApplicationOffered, ApplicationRejected:
		return true
	}
	return false
}

// Application is unique per (job, applicant)
type Application struct {
	ID          string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	JobID       string            `gorm:"type:varchar(36);not null;uniqueIndex:idx_applications_job_applicant" json:"job_id"`
	Job         *Job              `gorm:"foreignKey:JobID" json:"job,omitempty"`
	ApplicantID string            `gorm:"type:varchar(36);not null;uniqueIndex:idx_applications_job_applicant;index" json:"applicant_id"`
	Applicant   *User             `gorm:"foreignKey:ApplicantID" json:"applicant,omitempty"`
	CoverLetter string            `gorm:"type:text" json:"cover_letter"`
	ResumeURL   string            `json:"resume_url"`
	Status      ApplicationStatus `gorm:"type:varchar(16);not null;default:submitted" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Application) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = generateUUID()
	}
	if a.Status == "" {
		a.Status = ApplicationSubmitted
	}
	return nil
}
