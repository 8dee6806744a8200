package schema

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdmin            = "admin"
	RolePortfolioManager = "portfolio_manager"
	RoleViewer           = "viewer"
)

var Roles = []string{RoleAdmin, RolePortfolioManager, RoleViewer}

// Phases is ordered from earliest to latest stage of development.
var Phases = []string{"Discovery", "Preclinical", "Phase I", "Phase II", "Phase III", "Filed", "Approved"}

var ProgramStatuses = []string{"Active", "On Hold", "Terminated", "Completed"}

var StudyStatuses = []string{"Planned", "Recruiting", "Active", "Completed", "Terminated", "Suspended"}

var MilestoneCategories = []string{"Regulatory", "Clinical", "Manufacturing", "Commercial", "Other"}

var MilestoneStatuses = []string{"Pending", "In Progress", "Completed", "Delayed", "Cancelled"}

const (
	DefaultProgramStatus   = "Active"
	DefaultStudyStatus     = "Planned"
	DefaultMilestoneStatus = "Pending"
)

func checkOneOf(kind, value string, allowed []string) error {
	if !slices.Contains(allowed, value) {
		return fmt.Errorf("invalid %v '%v'", kind, value)
	}
	return nil
}

func CheckValidRole(role string) error {
	return checkOneOf("role", role, Roles)
}

func CheckValidPhase(phase string) error {
	return checkOneOf("phase", phase, Phases)
}

func CheckValidProgramStatus(status string) error {
	return checkOneOf("program status", status, ProgramStatuses)
}

func CheckValidStudyStatus(status string) error {
	return checkOneOf("study status", status, StudyStatuses)
}

func CheckValidMilestoneCategory(category string) error {
	return checkOneOf("milestone category", category, MilestoneCategories)
}

func CheckValidMilestoneStatus(status string) error {
	return checkOneOf("milestone status", status, MilestoneStatuses)
}

type User struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Username     string `gorm:"unique;size:50;not null" json:"username"`
	PasswordHash []byte `gorm:"not null" json:"-"`
	Role         string `gorm:"size:50;not null" json:"role"`
	FullName     string `gorm:"size:100;not null" json:"full_name"`
	Email        string `gorm:"size:254" json:"email,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Program struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Name            string `gorm:"size:200;not null;index" json:"name"`
	Code            string `gorm:"unique;size:20;not null" json:"code"`
	TherapeuticArea string `gorm:"size:100;not null;index" json:"therapeutic_area"`
	Phase           string `gorm:"size:50;not null;index" json:"phase"`
	Status          string `gorm:"size:50;not null;default:'Active';index" json:"status"`
	Indication      string `gorm:"size:200;not null" json:"indication"`

	MoleculeType    *string `gorm:"size:100" json:"molecule_type"`
	Target          *string `gorm:"size:100" json:"target"`
	Description     *string `json:"description"`
	Lead            *string `gorm:"size:100" json:"lead"`
	StartDate       *string `gorm:"size:10" json:"start_date"`
	ExpectedEndDate *string `gorm:"size:10" json:"expected_end_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Studies    []Study     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Milestones []Milestone `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

type Study struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ProgramId uuid.UUID `gorm:"type:uuid;not null;index" json:"program_id"`

	Name           string `gorm:"size:200;not null" json:"name"`
	ProtocolNumber string `gorm:"unique;size:50;not null" json:"protocol_number"`
	Phase          string `gorm:"size:50;not null" json:"phase"`
	Status         string `gorm:"size:50;not null;default:'Planned';index" json:"status"`

	// CurrentEnrollment is expected to stay at or below TargetEnrollment, but
	// this is advisory only; writes that exceed the target are accepted.
	TargetEnrollment  int `gorm:"not null;default:0" json:"target_enrollment"`
	CurrentEnrollment int `gorm:"not null;default:0" json:"current_enrollment"`

	StartDate   *string `gorm:"size:10" json:"start_date"`
	EndDate     *string `gorm:"size:10" json:"end_date"`
	SitesCount  int     `gorm:"default:0" json:"sites_count"`
	Countries   *string `json:"countries"`
	Description *string `json:"description"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Milestones []Milestone `gorm:"constraint:OnDelete:SET NULL" json:"-"`
}

type Milestone struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ProgramId uuid.UUID  `gorm:"type:uuid;not null;index" json:"program_id"`
	StudyId   *uuid.UUID `gorm:"type:uuid;index" json:"study_id"`

	Title       string  `gorm:"size:200;not null" json:"title"`
	Description *string `json:"description"`
	Category    string  `gorm:"size:50;not null" json:"category"`
	Status      string  `gorm:"size:50;not null;default:'Pending';index" json:"status"`

	PlannedDate *string `gorm:"size:10" json:"planned_date"`
	ActualDate  *string `gorm:"size:10" json:"actual_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
