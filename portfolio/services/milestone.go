package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"drug_portfolio/portfolio/auth"
	"drug_portfolio/portfolio/pagination"
	"drug_portfolio/portfolio/schema"
	"drug_portfolio/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

type MilestoneService struct {
	db    *gorm.DB
	jwt   *auth.JwtManager
	audit auth.AuditLogger
}

func (s *MilestoneService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(s.jwt.AuthMiddleware(s.audit)...)

		r.Get("/", s.List)
		r.Get("/{milestone_id}", s.Get)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.jwt.AuthMiddleware(s.audit)...)
		r.Use(auth.RequireRole(schema.RoleAdmin, schema.RolePortfolioManager))

		r.Post("/", s.Create)
		r.Put("/{milestone_id}", s.Update)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.jwt.AuthMiddleware(s.audit)...)
		r.Use(auth.RequireRole(schema.RoleAdmin))

		r.Delete("/{milestone_id}", s.Delete)
	})

	return r
}

func (s *MilestoneService) List(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(milestoneListMetric)
	defer timer.ObserveDuration()

	params := pagination.ParseParams(r, 50, nil, "planned_date")

	query := s.db.Model(&schema.Milestone{})

	programId, err := optionalUUIDFilter(r, "program_id")
	if err != nil {
		writeError(w, err)
		return
	}
	if programId != nil {
		query = query.Where("program_id = ?", *programId)
	}

	studyId, err := optionalUUIDFilter(r, "study_id")
	if err != nil {
		writeError(w, err)
		return
	}
	if studyId != nil {
		query = query.Where("study_id = ?", *studyId)
	}

	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if category := r.URL.Query().Get("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	page, err := pagination.Run[schema.Milestone](query, params, "planned_date ASC")
	if err != nil {
		utils.WriteJsonError(w, "error listing milestones", http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, page)
}

func (s *MilestoneService) Get(w http.ResponseWriter, r *http.Request) {
	milestoneId, err := utils.URLParamUUID(r, "milestone_id")
	if err != nil {
		utils.WriteJsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	milestone, err := schema.GetMilestone(milestoneId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrMilestoneNotFound) {
			utils.WriteJsonError(w, err.Error(), http.StatusNotFound)
			return
		}
		utils.WriteJsonError(w, "error getting milestone", http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, milestone)
}

type createMilestoneRequest struct {
	ProgramId   uuid.UUID  `json:"program_id"`
	StudyId     *uuid.UUID `json:"study_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Category    string     `json:"category"`
	Status      string     `json:"status"`
	PlannedDate *string    `json:"planned_date"`
	ActualDate  *string    `json:"actual_date"`
}

func (s *MilestoneService) Create(w http.ResponseWriter, r *http.Request) {
	var params createMilestoneRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.ProgramId == uuid.Nil || params.Title == "" || params.Category == "" {
		utils.WriteJsonError(w, "missing required fields: program_id, title, category", http.StatusBadRequest)
		return
	}

	if err := schema.CheckValidMilestoneCategory(params.Category); err != nil {
		utils.WriteJsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if params.Status == "" {
		params.Status = schema.DefaultMilestoneStatus
	}
	if err := schema.CheckValidMilestoneStatus(params.Status); err != nil {
		utils.WriteJsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	milestone := schema.Milestone{
		Id:          uuid.New(),
		ProgramId:   params.ProgramId,
		StudyId:     params.StudyId,
		Title:       params.Title,
		Description: params.Description,
		Category:    params.Category,
		Status:      params.Status,
		PlannedDate: params.PlannedDate,
		ActualDate:  params.ActualDate,
	}

	err := s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkProgramExists(txn, params.ProgramId); err != nil {
			return err
		}
		if params.StudyId != nil {
			if err := checkStudyExists(txn, *params.StudyId); err != nil {
				return err
			}
		}

		result := txn.Create(&milestone)
		if result.Error != nil {
			slog.Error("sql error creating new milestone entry", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		writeError(w, err)
		return
	}

	slog.Info("milestone created", "milestone_id", milestone.Id, "program_id", milestone.ProgramId)

	utils.WriteJsonResponseStatus(w, http.StatusCreated, milestone)
}

type updateMilestoneRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Status      *string `json:"status"`
	PlannedDate *string `json:"planned_date"`
	ActualDate  *string `json:"actual_date"`
}

func (params *updateMilestoneRequest) apply(milestone *schema.Milestone) error {
	if params.Title != nil {
		milestone.Title = *params.Title
	}
	if params.Description != nil {
		milestone.Description = params.Description
	}
	if params.Category != nil {
		if err := schema.CheckValidMilestoneCategory(*params.Category); err != nil {
			return err
		}
		milestone.Category = *params.Category
	}
	if params.Status != nil {
		if err := schema.CheckValidMilestoneStatus(*params.Status); err != nil {
			return err
		}
		milestone.Status = *params.Status
	}
	if params.PlannedDate != nil {
		milestone.PlannedDate = params.PlannedDate
	}
	if params.ActualDate != nil {
		milestone.ActualDate = params.ActualDate
	}
	return nil
}

func (s *MilestoneService) Update(w http.ResponseWriter, r *http.Request) {
	milestoneId, err := utils.URLParamUUID(r, "milestone_id")
	if err != nil {
		utils.WriteJsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params updateMilestoneRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	var milestone schema.Milestone

	err = s.db.Transaction(func(txn *gorm.DB) error {
		var err error
		milestone, err = schema.GetMilestone(milestoneId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrMilestoneNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if err := params.apply(&milestone); err != nil {
			return CodedError(err, http.StatusBadRequest)
		}

		result := txn.Save(&milestone)
		if result.Error != nil {
			slog.Error("sql error updating milestone", "milestone_id", milestoneId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		writeError(w, err)
		return
	}

	utils.WriteJsonResponse(w, milestone)
}

func (s *MilestoneService) Delete(w http.ResponseWriter, r *http.Request) {
	milestoneId, err := utils.URLParamUUID(r, "milestone_id")
	if err != nil {
		utils.WriteJsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if _, err := schema.GetMilestone(milestoneId, txn); err != nil {
			if errors.Is(err, schema.ErrMilestoneNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		result := txn.Delete(&schema.Milestone{Id: milestoneId})
		if result.Error != nil {
			slog.Error("sql error deleting milestone", "milestone_id", milestoneId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		writeError(w, fmt.Errorf("error deleting milestone: %w", err))
		return
	}

	utils.WriteJsonResponse(w, map[string]string{"message": "Milestone deleted"})
}
