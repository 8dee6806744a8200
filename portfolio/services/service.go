package services

import (
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"drug_portfolio/portfolio/auth"
	"drug_portfolio/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Portfolio bundles the api services behind a single router. All services
// share one db handle and one jwt manager so tokens issued by the auth
// service verify everywhere.
type Portfolio struct {
	auth      AuthService
	program   ProgramService
	study     StudyService
	milestone MilestoneService
	dashboard DashboardService
}

func NewPortfolio(db *gorm.DB, secret []byte, auditLogStream io.Writer) Portfolio {
	jwt := auth.NewJwtManager(secret)
	audit := auth.NewAuditLogger(auditLogStream)

	return Portfolio{
		auth:      AuthService{db: db, jwt: jwt, audit: audit},
		program:   ProgramService{db: db, jwt: jwt, audit: audit},
		study:     StudyService{db: db, jwt: jwt, audit: audit},
		milestone: MilestoneService{db: db, jwt: jwt, audit: audit},
		dashboard: DashboardService{db: db, jwt: jwt, audit: audit},
	}
}

func (p *Portfolio) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger: log.New(os.Stderr, "", log.LstdFlags), NoColor: false,
	}))

	r.Mount("/auth", p.auth.Routes())
	r.Mount("/programs", p.program.Routes())
	r.Mount("/studies", p.study.Routes())
	r.Mount("/milestones", p.milestone.Routes())
	r.Mount("/dashboard", p.dashboard.Routes())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJsonResponse(w, map[string]string{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
