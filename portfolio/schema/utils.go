package schema

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrProgramNotFound   = errors.New("program not found")
	ErrStudyNotFound     = errors.New("study not found")
	ErrMilestoneNotFound = errors.New("milestone not found")
	ErrDbAccessFailed    = errors.New("db access failed")
)

func GetUser(userId uuid.UUID, db *gorm.DB) (User, error) {
	var user User

	result := db.First(&user, "id = ?", userId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		slog.Error("sql error in get user", "user_id", userId, "error", result.Error)
		return user, ErrDbAccessFailed
	}

	return user, nil
}

func GetUserByUsername(username string, db *gorm.DB) (User, error) {
	var user User

	result := db.First(&user, "username = ?", username)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		slog.Error("sql error in get user by username", "error", result.Error)
		return user, ErrDbAccessFailed
	}

	return user, nil
}

func GetProgram(programId uuid.UUID, db *gorm.DB) (Program, error) {
	var program Program

	result := db.First(&program, "id = ?", programId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return program, ErrProgramNotFound
		}
		slog.Error("sql error in get program", "program_id", programId, "error", result.Error)
		return program, ErrDbAccessFailed
	}

	return program, nil
}

func GetStudy(studyId uuid.UUID, db *gorm.DB) (Study, error) {
	var study Study

	result := db.First(&study, "id = ?", studyId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return study, ErrStudyNotFound
		}
		slog.Error("sql error in get study", "study_id", studyId, "error", result.Error)
		return study, ErrDbAccessFailed
	}

	return study, nil
}

func GetMilestone(milestoneId uuid.UUID, db *gorm.DB) (Milestone, error) {
	var milestone Milestone

	result := db.First(&milestone, "id = ?", milestoneId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return milestone, ErrMilestoneNotFound
		}
		slog.Error("sql error in get milestone", "milestone_id", milestoneId, "error", result.Error)
		return milestone, ErrDbAccessFailed
	}

	return milestone, nil
}
