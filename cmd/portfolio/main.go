package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"drug_portfolio/portfolio/auth"
	"drug_portfolio/portfolio/schema"
	"drug_portfolio/portfolio/services"

	"github.com/caarlos0/env/v10"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	slogmulti "github.com/samber/slog-multi"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type serverEnv struct {
	Port        int    `env:"PORT" envDefault:"3000"`
	DatabaseUri string `env:"DATABASE_URI" envDefault:"file:portfolio.db"`
	JwtSecret   string `env:"JWT_SECRET,required"`

	AdminUsername string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword string `env:"ADMIN_PASSWORD,required"`
	AdminFullName string `env:"ADMIN_FULL_NAME" envDefault:"Portfolio Admin"`
	AdminEmail    string `env:"ADMIN_EMAIL"`

	LogDir     string `env:"LOG_DIR" envDefault:"logs"`
	CorsOrigin string `env:"CORS_ORIGIN" envDefault:"*"`
}

func loadEnv(envFile string) serverEnv {
	if envFile != "" {
		slog.Info(fmt.Sprintf("loading env from file %v", envFile))
		if err := godotenv.Load(envFile); err != nil {
			log.Fatalf("error loading env file '%v': %v", envFile, err)
		}
	}

	var cfg serverEnv
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing env variables: %v", err)
	}
	return cfg
}

func initLogging(logFile *os.File) {
	handler := slogmulti.Fanout(
		slog.NewJSONHandler(logFile, nil),
		slog.NewTextHandler(os.Stderr, nil),
	)
	slog.SetDefault(slog.New(handler))
	slog.Info("logging initialized", "log_file", logFile.Name())
}

func initDb(uri string) *gorm.DB {
	var dialector gorm.Dialector
	if strings.HasPrefix(uri, "postgres://") || strings.HasPrefix(uri, "postgresql://") {
		dialector = postgres.Open(uri)
	} else {
		dialector = sqlite.Open(uri + "?_journal_mode=WAL&_foreign_keys=on")
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		log.Fatalf("error opening database connection: %v", err)
	}

	if err := schema.Migrate(db); err != nil {
		log.Fatalf("error migrating db schema: %v", err)
	}

	return db
}

func main() {
	envFile := flag.String("env", "", "File to load env variables from. If not specified will just load them from the environment variables already defined.")
	flag.Parse()

	cfg := loadEnv(*envFile)

	err := os.MkdirAll(cfg.LogDir, 0777)
	if err != nil {
		log.Fatalf("error creating log dir: %v", err)
	}

	logFile, err := os.OpenFile(filepath.Join(cfg.LogDir, "portfolio.log"), os.O_CREATE|os.O_APPEND|os.O_RDWR, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer logFile.Close()

	auditLog, err := os.OpenFile(filepath.Join(cfg.LogDir, "audit.log"), os.O_CREATE|os.O_APPEND|os.O_RDWR, 0666)
	if err != nil {
		log.Fatalf("error opening audit log file: %v", err)
	}
	defer auditLog.Close()

	initLogging(logFile)

	db := initDb(cfg.DatabaseUri)

	err = auth.EnsureAdminUser(db, auth.AdminArgs{
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
		FullName: cfg.AdminFullName,
		Email:    cfg.AdminEmail,
	})
	if err != nil {
		log.Fatalf("error creating initial admin user: %v", err)
	}

	portfolio := services.NewPortfolio(db, []byte(cfg.JwtSecret), auditLog)

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CorsOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Mount("/api", portfolio.Routes())

	slog.Info("starting server", "port", cfg.Port)
	err = http.ListenAndServe(fmt.Sprintf(":%d", cfg.Port), r)
	if err != nil {
		log.Fatalf("listen and serve returned error: %v", err.Error())
	}
}
