package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleFaculty UserRole = "FACULTY"
)

func (r UserRole) Valid() bool {
	return r == RoleAdmin || r == RoleFaculty
}

type User struct {
	ID    string   `json:"id" gorm:"primaryKey;size:36"`
	Name  string   `json:"name" gorm:"not null;size:100"`
	Email string   `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Role  UserRole `json:"role" gorm:"not null;size:20;default:FACULTY"`

	// Profile info
	Designation    *string `json:"designation" gorm:"size:100"`
	Department     *string `json:"department" gorm:"size:100"`
	ProfilePicture *string `json:"profilePicture" gorm:"size:500"`

	// Faculty accounts stay unusable until an admin approves them.
	IsApproved bool `json:"isApproved" gorm:"default:false"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Relations
	Assignments []FacultySubject `json:"-" gorm:"foreignKey:FacultyID;constraint:OnDelete:CASCADE"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// FacultySubject records that a faculty member may author questions for a
// subject.
type FacultySubject struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	FacultyID  string    `json:"facultyId" gorm:"not null;size:36;uniqueIndex:idx_faculty_subject"`
	SubjectID  string    `json:"subjectId" gorm:"not null;size:36;uniqueIndex:idx_faculty_subject;index"`
	AssignedBy *string   `json:"assignedBy" gorm:"size:36"`
	AssignedAt time.Time `json:"assignedAt" gorm:"autoCreateTime"`

	// Relations
	Subject Subject `json:"subject" gorm:"foreignKey:SubjectID;constraint:OnDelete:CASCADE"`
}

func (FacultySubject) TableName() string {
	return "faculty_subjects"
}

func (fs *FacultySubject) BeforeCreate(*gorm.DB) error {
	ensureID(&fs.ID)
	return nil
}
