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

type StudyService struct {
	db    *gorm.DB
	jwt   *auth.JwtManager
	audit auth.AuditLogger
}

func (s *StudyService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(s.jwt.AuthMiddleware(s.audit)...)

		r.Get("/", s.List)
		r.Get("/{study_id}", s.Get)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.jwt.AuthMiddleware(s.audit)...)
		r.Use(auth.RequireRole(schema.RoleAdmin, schema.RolePortfolioManager))

		r.Post("/", s.Create)
		r.Put("/{study_id}", s.Update)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.jwt.AuthMiddleware(s.audit)...)
		r.Use(auth.RequireRole(schema.RoleAdmin))

		r.Delete("/{study_id}", s.Delete)
	})

	return r
}

func (s *StudyService) List(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(studyListMetric)
	defer timer.ObserveDuration()

	params := pagination.ParseParams(r, 50, nil, "start_date")

	query := s.db.Model(&schema.Study{})

	programId, err := optionalUUIDFilter(r, "program_id")
	if err != nil {
		writeError(w, err)
		return
	}
	if programId != nil {
		query = query.Where("program_id = ?", *programId)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	page, err := pagination.Run[schema.Study](query, params, "start_date DESC")
	if err != nil {
		utils.WriteJsonError(w, "error listing studies", http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, page)
}

type studyDetail struct {
	schema.Study

	Milestones []schema.Milestone `json:"milestones"`
}

func (s *StudyService) Get(w http.ResponseWriter, r *http.Request) {
	studyId, err := utils.URLParamUUID(r, "study_id")
	if err != nil {
		utils.WriteJsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	study, err := schema.GetStudy(studyId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrStudyNotFound) {
			utils.WriteJsonError(w, err.Error(), http.StatusNotFound)
			return
		}
		utils.WriteJsonError(w, "error getting study", http.StatusInternalServerError)
		return
	}

	detail := studyDetail{Study: study, Milestones: make([]schema.Milestone, 0)}

	result := s.db.Where("study_id = ?", studyId).Order("planned_date ASC").Find(&detail.Milestones)
	if result.Error != nil {
		slog.Error("sql error listing study milestones", "study_id", studyId, "error", result.Error)
		utils.WriteJsonError(w, "error getting study", http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, detail)
}

type createStudyRequest struct {
	ProgramId         uuid.UUID `json:"program_id"`
	Name              string    `json:"name"`
	ProtocolNumber    string    `json:"protocol_number"`
	Phase             string    `json:"phase"`
	Status            string    `json:"status"`
	TargetEnrollment  int       `json:"target_enrollment"`
	CurrentEnrollment int       `json:"current_enrollment"`
	StartDate         *string   `json:"start_date"`
	EndDate           *string   `json:"end_date"`
	SitesCount        int       `json:"sites_count"`
	Countries         *string   `json:"countries"`
	Description       *string   `json:"description"`
}

func (s *StudyService) Create(w http.ResponseWriter, r *http.Request) {
	var params createStudyRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.ProgramId == uuid.Nil || params.Name == "" || params.ProtocolNumber == "" || params.Phase == "" {
		utils.WriteJsonError(w, "missing required fields: program_id, name, protocol_number, phase", http.StatusBadRequest)
		return
	}

	if params.Status == "" {
		params.Status = schema.DefaultStudyStatus
	}
	if err := schema.CheckValidStudyStatus(params.Status); err != nil {
		utils.WriteJsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if params.TargetEnrollment < 0 || params.CurrentEnrollment < 0 || params.SitesCount < 0 {
		utils.WriteJsonError(w, "enrollment and site counts must be non-negative", http.StatusBadRequest)
		return
	}

	study := schema.Study{
		Id:                uuid.New(),
		ProgramId:         params.ProgramId,
		Name:              params.Name,
		ProtocolNumber:    params.ProtocolNumber,
		Phase:             params.Phase,
		Status:            params.Status,
		TargetEnrollment:  params.TargetEnrollment,
		CurrentEnrollment: params.CurrentEnrollment,
		StartDate:         params.StartDate,
		EndDate:           params.EndDate,
		SitesCount:        params.SitesCount,
		Countries:         params.Countries,
		Description:       params.Description,
	}

	err := s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkProgramExists(txn, params.ProgramId); err != nil {
			return err
		}

		var existing schema.Study
		result := txn.Limit(1).Find(&existing, "protocol_number = ?", params.ProtocolNumber)
		if result.Error != nil {
			slog.Error("sql error checking for duplicate protocol number", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		if result.RowsAffected != 0 {
			return CodedError(errors.New("protocol number already exists"), http.StatusConflict)
		}

		result = txn.Create(&study)
		if result.Error != nil {
			slog.Error("sql error creating new study entry", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		writeError(w, err)
		return
	}

	slog.Info("study created", "study_id", study.Id, "program_id", study.ProgramId)

	utils.WriteJsonResponseStatus(w, http.StatusCreated, study)
}

type updateStudyRequest struct {
	Name              *string `json:"name"`
	Phase             *string `json:"phase"`
	Status            *string `json:"status"`
	TargetEnrollment  *int    `json:"target_enrollment"`
	CurrentEnrollment *int    `json:"current_enrollment"`
	StartDate         *string `json:"start_date"`
	EndDate           *string `json:"end_date"`
	SitesCount        *int    `json:"sites_count"`
	Countries         *string `json:"countries"`
	Description       *string `json:"description"`
}

func (params *updateStudyRequest) apply(study *schema.Study) error {
	if params.Name != nil {
		study.Name = *params.Name
	}
	if params.Phase != nil {
		study.Phase = *params.Phase
	}
	if params.Status != nil {
		if err := schema.CheckValidStudyStatus(*params.Status); err != nil {
			return err
		}
		study.Status = *params.Status
	}
	if params.TargetEnrollment != nil {
		if *params.TargetEnrollment < 0 {
			return errors.New("target_enrollment must be non-negative")
		}
		study.TargetEnrollment = *params.TargetEnrollment
	}
	if params.CurrentEnrollment != nil {
		if *params.CurrentEnrollment < 0 {
			return errors.New("current_enrollment must be non-negative")
		}
		study.CurrentEnrollment = *params.CurrentEnrollment
	}
	if params.StartDate != nil {
		study.StartDate = params.StartDate
	}
	if params.EndDate != nil {
		study.EndDate = params.EndDate
	}
	if params.SitesCount != nil {
		if *params.SitesCount < 0 {
			return errors.New("sites_count must be non-negative")
		}
		study.SitesCount = *params.SitesCount
	}
	if params.Countries != nil {
		study.Countries = params.Countries
	}
	if params.Description != nil {
		study.Description = params.Description
	}
	return nil
}

func (s *StudyService) Update(w http.ResponseWriter, r *http.Request) {
	studyId, err := utils.URLParamUUID(r, "study_id")
	if err != nil {
		utils.WriteJsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params updateStudyRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	var study schema.Study

	err = s.db.Transaction(func(txn *gorm.DB) error {
		var err error
		study, err = schema.GetStudy(studyId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrStudyNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if err := params.apply(&study); err != nil {
			return CodedError(err, http.StatusBadRequest)
		}

		result := txn.Save(&study)
		if result.Error != nil {
			slog.Error("sql error updating study", "study_id", studyId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		writeError(w, err)
		return
	}

	utils.WriteJsonResponse(w, study)
}

func (s *StudyService) Delete(w http.ResponseWriter, r *http.Request) {
	studyId, err := utils.URLParamUUID(r, "study_id")
	if err != nil {
		utils.WriteJsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkStudyExists(txn, studyId); err != nil {
			return err
		}

		// Milestones that reference this study keep existing with a null
		// study_id via the FK's SET NULL action.
		result := txn.Delete(&schema.Study{Id: studyId})
		if result.Error != nil {
			slog.Error("sql error deleting study", "study_id", studyId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		writeError(w, fmt.Errorf("error deleting study: %w", err))
		return
	}

	slog.Info("study deleted", "study_id", studyId)

	utils.WriteJsonResponse(w, map[string]string{"message": "Study deleted"})
}
