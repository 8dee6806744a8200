package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"strings"
	"time"

	"drug_portfolio/portfolio/schema"
	"drug_portfolio/portfolio/seed"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type seedEnv struct {
	DatabaseUri string `env:"DATABASE_URI" envDefault:"file:portfolio.db"`
}

func main() {
	envFile := flag.String("env", "", "File to load env variables from. If not specified will just load them from the environment variables already defined.")
	programs := flag.Int("programs", 50, "Number of programs to generate")
	rngSeed := flag.Int64("seed", time.Now().UnixNano(), "Seed for the random generator, for reproducible data")
	flag.Parse()

	if *envFile != "" {
		slog.Info(fmt.Sprintf("loading env from file %v", *envFile))
		if err := godotenv.Load(*envFile); err != nil {
			log.Fatalf("error loading env file '%v': %v", *envFile, err)
		}
	}

	var cfg seedEnv
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing env variables: %v", err)
	}

	var dialector gorm.Dialector
	if strings.HasPrefix(cfg.DatabaseUri, "postgres://") || strings.HasPrefix(cfg.DatabaseUri, "postgresql://") {
		dialector = postgres.Open(cfg.DatabaseUri)
	} else {
		dialector = sqlite.Open(cfg.DatabaseUri + "?_journal_mode=WAL&_foreign_keys=on")
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		log.Fatalf("error opening database connection: %v", err)
	}

	if err := schema.Migrate(db); err != nil {
		log.Fatalf("error migrating db schema: %v", err)
	}

	if err := seed.Seed(db, *programs, *rngSeed); err != nil {
		log.Fatalf("error seeding database: %v", err)
	}

	fmt.Println("Database seeded successfully.")
	fmt.Println("Login credentials:")
	fmt.Println("  Admin:             admin / admin123")
	fmt.Println("  Portfolio Manager: pm_jones / pass123")
	fmt.Println("  Portfolio Manager: pm_smith / pass123")
	fmt.Println("  Viewer:            viewer / view123")
}
