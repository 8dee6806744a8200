package services

import (
	"log/slog"
	"net/http"

	"drug_portfolio/portfolio/auth"
	"drug_portfolio/portfolio/schema"
	"drug_portfolio/utils"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

type DashboardService struct {
	db    *gorm.DB
	jwt   *auth.JwtManager
	audit auth.AuditLogger
}

func (s *DashboardService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(s.jwt.AuthMiddleware(s.audit)...)

		r.Get("/", s.Stats)
	})

	return r
}

type upcomingMilestone struct {
	schema.Milestone

	ProgramName string `json:"program_name"`
	ProgramCode string `json:"program_code"`
}

type enrollmentByPhase struct {
	Phase             string `json:"phase"`
	CurrentEnrollment int64  `json:"current_enrollment"`
	TargetEnrollment  int64  `json:"target_enrollment"`
}

type dashboardStats struct {
	TotalPrograms      int64               `json:"totalPrograms"`
	TotalStudies       int64               `json:"totalStudies"`
	TotalEnrollment    int64               `json:"totalEnrollment"`
	TargetEnrollment   int64               `json:"targetEnrollment"`
	ByPhase            map[string]int64    `json:"byPhase"`
	ByTherapeuticArea  map[string]int64    `json:"byTherapeuticArea"`
	ByStatus           map[string]int64    `json:"byStatus"`
	UpcomingMilestones []upcomingMilestone `json:"upcomingMilestones"`
	EnrollmentByPhase  []enrollmentByPhase `json:"enrollmentByPhase"`
}

type groupCount struct {
	Value string
	Count int64
}

func (s *DashboardService) programCountsBy(column string) (map[string]int64, error) {
	var rows []groupCount
	result := s.db.Model(&schema.Program{}).
		Select(column + " AS value, COUNT(*) AS count").
		Group(column).
		Scan(&rows)
	if result.Error != nil {
		slog.Error("sql error counting programs by column", "column", column, "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Value] = row.Count
	}
	return counts, nil
}

// Stats computes the dashboard snapshot fresh on every request. The component
// queries run without a shared transaction, so concurrent writes can make the
// numbers reflect slightly different points in time.
func (s *DashboardService) Stats(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(dashboardMetric)
	defer timer.ObserveDuration()

	var stats dashboardStats

	if result := s.db.Model(&schema.Program{}).Count(&stats.TotalPrograms); result.Error != nil {
		slog.Error("sql error counting programs", "error", result.Error)
		utils.WriteJsonError(w, "error computing dashboard stats", http.StatusInternalServerError)
		return
	}

	if result := s.db.Model(&schema.Study{}).Count(&stats.TotalStudies); result.Error != nil {
		slog.Error("sql error counting studies", "error", result.Error)
		utils.WriteJsonError(w, "error computing dashboard stats", http.StatusInternalServerError)
		return
	}

	var enrollment struct {
		Total  int64
		Target int64
	}
	result := s.db.Model(&schema.Study{}).
		Select("COALESCE(SUM(current_enrollment), 0) AS total, COALESCE(SUM(target_enrollment), 0) AS target").
		Scan(&enrollment)
	if result.Error != nil {
		slog.Error("sql error summing enrollment", "error", result.Error)
		utils.WriteJsonError(w, "error computing dashboard stats", http.StatusInternalServerError)
		return
	}
	stats.TotalEnrollment = enrollment.Total
	stats.TargetEnrollment = enrollment.Target

	var err error
	if stats.ByPhase, err = s.programCountsBy("phase"); err != nil {
		utils.WriteJsonError(w, "error computing dashboard stats", http.StatusInternalServerError)
		return
	}
	if stats.ByTherapeuticArea, err = s.programCountsBy("therapeutic_area"); err != nil {
		utils.WriteJsonError(w, "error computing dashboard stats", http.StatusInternalServerError)
		return
	}
	if stats.ByStatus, err = s.programCountsBy("status"); err != nil {
		utils.WriteJsonError(w, "error computing dashboard stats", http.StatusInternalServerError)
		return
	}

	stats.UpcomingMilestones = make([]upcomingMilestone, 0, 10)
	result = s.db.Table("milestones").
		Select("milestones.*, programs.name AS program_name, programs.code AS program_code").
		Joins("JOIN programs ON programs.id = milestones.program_id").
		Where("milestones.status IN ?", []string{"Pending", "In Progress"}).
		Where("milestones.planned_date IS NOT NULL").
		Order("milestones.planned_date ASC").
		Limit(10).
		Find(&stats.UpcomingMilestones)
	if result.Error != nil {
		slog.Error("sql error listing upcoming milestones", "error", result.Error)
		utils.WriteJsonError(w, "error computing dashboard stats", http.StatusInternalServerError)
		return
	}

	// Left join so phases whose programs have no studies still appear, with
	// zero sums.
	stats.EnrollmentByPhase = make([]enrollmentByPhase, 0)
	result = s.db.Table("programs").
		Select(`programs.phase,
			COALESCE(SUM(s.current_enrollment), 0) AS current_enrollment,
			COALESCE(SUM(s.target_enrollment), 0) AS target_enrollment`).
		Joins("LEFT JOIN studies s ON s.program_id = programs.id").
		Group("programs.phase").
		Order("programs.phase").
		Scan(&stats.EnrollmentByPhase)
	if result.Error != nil {
		slog.Error("sql error summing enrollment by phase", "error", result.Error)
		utils.WriteJsonError(w, "error computing dashboard stats", http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, stats)
}
