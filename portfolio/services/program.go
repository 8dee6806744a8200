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

type ProgramService struct {
	db    *gorm.DB
	jwt   *auth.JwtManager
	audit auth.AuditLogger
}

func (s *ProgramService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(s.jwt.AuthMiddleware(s.audit)...)

		r.Get("/", s.List)
		r.Get("/filters", s.Filters)
		r.Get("/{program_id}", s.Get)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.jwt.AuthMiddleware(s.audit)...)
		r.Use(auth.RequireRole(schema.RoleAdmin, schema.RolePortfolioManager))

		r.Post("/", s.Create)
		r.Put("/{program_id}", s.Update)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.jwt.AuthMiddleware(s.audit)...)
		r.Use(auth.RequireRole(schema.RoleAdmin))

		r.Delete("/{program_id}", s.Delete)
	})

	return r
}

// programSortColumns is the allow-list for the sortBy query parameter, values
// outside of it fall back to sorting by name.
var programSortColumns = []string{"name", "code", "phase", "therapeutic_area", "status", "start_date", "created_at", "updated_at"}

type programWithStats struct {
	schema.Program

	StudyCount          int `json:"study_count"`
	TotalEnrollment     int `json:"total_enrollment"`
	TargetEnrollment    int `json:"target_enrollment"`
	MilestoneCount      int `json:"milestone_count"`
	CompletedMilestones int `json:"completed_milestones"`
}

func (s *ProgramService) listQuery(r *http.Request) *gorm.DB {
	query := s.db.Table("programs").
		Select(`programs.*,
			COALESCE(s.study_count, 0) AS study_count,
			COALESCE(s.current_enrollment, 0) AS total_enrollment,
			COALESCE(s.target_enrollment, 0) AS target_enrollment,
			COALESCE(m.milestone_count, 0) AS milestone_count,
			COALESCE(m.completed_milestones, 0) AS completed_milestones`).
		Joins(`LEFT JOIN (
			SELECT program_id,
				COUNT(*) AS study_count,
				SUM(current_enrollment) AS current_enrollment,
				SUM(target_enrollment) AS target_enrollment
			FROM studies GROUP BY program_id
		) s ON s.program_id = programs.id`).
		Joins(`LEFT JOIN (
			SELECT program_id,
				COUNT(*) AS milestone_count,
				SUM(CASE WHEN status = 'Completed' THEN 1 ELSE 0 END) AS completed_milestones
			FROM milestones GROUP BY program_id
		) m ON m.program_id = programs.id`)

	if phase := r.URL.Query().Get("phase"); phase != "" {
		query = query.Where("programs.phase = ?", phase)
	}
	if area := r.URL.Query().Get("therapeutic_area"); area != "" {
		query = query.Where("programs.therapeutic_area = ?", area)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("programs.status = ?", status)
	}
	if search := r.URL.Query().Get("search"); search != "" {
		term := "%" + search + "%"
		query = query.Where(
			"programs.name LIKE ? OR programs.code LIKE ? OR programs.indication LIKE ? OR programs.target LIKE ?",
			term, term, term, term,
		)
	}

	return query
}

func (s *ProgramService) List(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(programListMetric)
	defer timer.ObserveDuration()

	params := pagination.ParseParams(r, 20, programSortColumns, "name")

	page, err := pagination.Run[programWithStats](s.listQuery(r), params, params.OrderClause("programs"))
	if err != nil {
		utils.WriteJsonError(w, "error listing programs", http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, page)
}

type filtersResponse struct {
	Phases           []string `json:"phases"`
	TherapeuticAreas []string `json:"therapeutic_areas"`
	Statuses         []string `json:"statuses"`
}

func (s *ProgramService) distinctColumn(column string) ([]string, error) {
	values := make([]string, 0)
	result := s.db.Model(&schema.Program{}).Distinct().Order(column).Pluck(column, &values)
	if result.Error != nil {
		slog.Error("sql error listing distinct program values", "column", column, "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}
	return values, nil
}

func (s *ProgramService) Filters(w http.ResponseWriter, r *http.Request) {
	var res filtersResponse
	var err error

	if res.Phases, err = s.distinctColumn("phase"); err != nil {
		utils.WriteJsonError(w, "error listing filters", http.StatusInternalServerError)
		return
	}
	if res.TherapeuticAreas, err = s.distinctColumn("therapeutic_area"); err != nil {
		utils.WriteJsonError(w, "error listing filters", http.StatusInternalServerError)
		return
	}
	if res.Statuses, err = s.distinctColumn("status"); err != nil {
		utils.WriteJsonError(w, "error listing filters", http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, res)
}

type programDetail struct {
	schema.Program

	Studies    []schema.Study     `json:"studies"`
	Milestones []schema.Milestone `json:"milestones"`
}

func (s *ProgramService) Get(w http.ResponseWriter, r *http.Request) {
	programId, err := utils.URLParamUUID(r, "program_id")
	if err != nil {
		utils.WriteJsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	program, err := schema.GetProgram(programId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrProgramNotFound) {
			utils.WriteJsonError(w, err.Error(), http.StatusNotFound)
			return
		}
		utils.WriteJsonError(w, "error getting program", http.StatusInternalServerError)
		return
	}

	detail := programDetail{Program: program, Studies: make([]schema.Study, 0), Milestones: make([]schema.Milestone, 0)}

	result := s.db.Where("program_id = ?", programId).Order("start_date DESC").Find(&detail.Studies)
	if result.Error != nil {
		slog.Error("sql error listing program studies", "program_id", programId, "error", result.Error)
		utils.WriteJsonError(w, "error getting program", http.StatusInternalServerError)
		return
	}

	result = s.db.Where("program_id = ?", programId).Order("planned_date ASC").Find(&detail.Milestones)
	if result.Error != nil {
		slog.Error("sql error listing program milestones", "program_id", programId, "error", result.Error)
		utils.WriteJsonError(w, "error getting program", http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, detail)
}

type createProgramRequest struct {
	Name            string  `json:"name"`
	Code            string  `json:"code"`
	TherapeuticArea string  `json:"therapeutic_area"`
	Phase           string  `json:"phase"`
	Status          string  `json:"status"`
	Indication      string  `json:"indication"`
	MoleculeType    *string `json:"molecule_type"`
	Target          *string `json:"target"`
	Description     *string `json:"description"`
	Lead            *string `json:"lead"`
	StartDate       *string `json:"start_date"`
	ExpectedEndDate *string `json:"expected_end_date"`
}

func (s *ProgramService) Create(w http.ResponseWriter, r *http.Request) {
	var params createProgramRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Name == "" || params.Code == "" || params.TherapeuticArea == "" || params.Phase == "" || params.Indication == "" {
		utils.WriteJsonError(w, "missing required fields: name, code, therapeutic_area, phase, indication", http.StatusBadRequest)
		return
	}

	if err := schema.CheckValidPhase(params.Phase); err != nil {
		utils.WriteJsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if params.Status == "" {
		params.Status = schema.DefaultProgramStatus
	}
	if err := schema.CheckValidProgramStatus(params.Status); err != nil {
		utils.WriteJsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	program := schema.Program{
		Id:              uuid.New(),
		Name:            params.Name,
		Code:            params.Code,
		TherapeuticArea: params.TherapeuticArea,
		Phase:           params.Phase,
		Status:          params.Status,
		Indication:      params.Indication,
		MoleculeType:    params.MoleculeType,
		Target:          params.Target,
		Description:     params.Description,
		Lead:            params.Lead,
		StartDate:       params.StartDate,
		ExpectedEndDate: params.ExpectedEndDate,
	}

	err := s.db.Transaction(func(txn *gorm.DB) error {
		var existing schema.Program
		result := txn.Limit(1).Find(&existing, "code = ?", params.Code)
		if result.Error != nil {
			slog.Error("sql error checking for duplicate program code", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		if result.RowsAffected != 0 {
			return CodedError(errors.New("program code already exists"), http.StatusConflict)
		}

		result = txn.Create(&program)
		if result.Error != nil {
			slog.Error("sql error creating new program entry", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		writeError(w, err)
		return
	}

	slog.Info("program created", "program_id", program.Id, "code", program.Code)

	utils.WriteJsonResponseStatus(w, http.StatusCreated, program)
}

// updateProgramRequest is a patch: nil fields keep their current value.
type updateProgramRequest struct {
	Name            *string `json:"name"`
	TherapeuticArea *string `json:"therapeutic_area"`
	Phase           *string `json:"phase"`
	Status          *string `json:"status"`
	Indication      *string `json:"indication"`
	MoleculeType    *string `json:"molecule_type"`
	Target          *string `json:"target"`
	Description     *string `json:"description"`
	Lead            *string `json:"lead"`
	StartDate       *string `json:"start_date"`
	ExpectedEndDate *string `json:"expected_end_date"`
}

func (params *updateProgramRequest) apply(program *schema.Program) error {
	if params.Name != nil {
		program.Name = *params.Name
	}
	if params.TherapeuticArea != nil {
		program.TherapeuticArea = *params.TherapeuticArea
	}
	if params.Phase != nil {
		if err := schema.CheckValidPhase(*params.Phase); err != nil {
			return err
		}
		program.Phase = *params.Phase
	}
	if params.Status != nil {
		if err := schema.CheckValidProgramStatus(*params.Status); err != nil {
			return err
		}
		program.Status = *params.Status
	}
	if params.Indication != nil {
		program.Indication = *params.Indication
	}
	if params.MoleculeType != nil {
		program.MoleculeType = params.MoleculeType
	}
	if params.Target != nil {
		program.Target = params.Target
	}
	if params.Description != nil {
		program.Description = params.Description
	}
	if params.Lead != nil {
		program.Lead = params.Lead
	}
	if params.StartDate != nil {
		program.StartDate = params.StartDate
	}
	if params.ExpectedEndDate != nil {
		program.ExpectedEndDate = params.ExpectedEndDate
	}
	return nil
}

func (s *ProgramService) Update(w http.ResponseWriter, r *http.Request) {
	programId, err := utils.URLParamUUID(r, "program_id")
	if err != nil {
		utils.WriteJsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params updateProgramRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	var program schema.Program

	err = s.db.Transaction(func(txn *gorm.DB) error {
		var err error
		program, err = schema.GetProgram(programId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrProgramNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if err := params.apply(&program); err != nil {
			return CodedError(err, http.StatusBadRequest)
		}

		result := txn.Save(&program)
		if result.Error != nil {
			slog.Error("sql error updating program", "program_id", programId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		writeError(w, err)
		return
	}

	utils.WriteJsonResponse(w, program)
}

func (s *ProgramService) Delete(w http.ResponseWriter, r *http.Request) {
	programId, err := utils.URLParamUUID(r, "program_id")
	if err != nil {
		utils.WriteJsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkProgramExists(txn, programId); err != nil {
			return err
		}

		// Studies and milestones go with the program via FK cascade.
		result := txn.Delete(&schema.Program{Id: programId})
		if result.Error != nil {
			slog.Error("sql error deleting program", "program_id", programId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		writeError(w, fmt.Errorf("error deleting program: %w", err))
		return
	}

	slog.Info("program deleted", "program_id", programId)

	utils.WriteJsonResponse(w, map[string]string{"message": "Program deleted"})
}
