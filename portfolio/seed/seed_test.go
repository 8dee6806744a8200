package seed

import (
	"fmt"
	"sync/atomic"
	"testing"

	"drug_portfolio/portfolio/schema"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var dbCounter atomic.Int64

func setupDb(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:seedtestdb%d?mode=memory&cache=shared&_foreign_keys=on", dbCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := schema.Migrate(db); err != nil {
		t.Fatal(err)
	}
	return db
}

func TestSeed(t *testing.T) {
	db := setupDb(t)

	const numPrograms = 10

	if err := Seed(db, numPrograms, 42); err != nil {
		t.Fatal(err)
	}

	var userCount, programCount, studyCount, milestoneCount int64
	db.Model(&schema.User{}).Count(&userCount)
	db.Model(&schema.Program{}).Count(&programCount)
	db.Model(&schema.Study{}).Count(&studyCount)
	db.Model(&schema.Milestone{}).Count(&milestoneCount)

	if userCount != 4 {
		t.Fatalf("expected 4 users, got %d", userCount)
	}
	if programCount != numPrograms {
		t.Fatalf("expected %d programs, got %d", numPrograms, programCount)
	}
	if studyCount < 2*numPrograms || studyCount > 5*numPrograms {
		t.Fatalf("expected 2-5 studies per program, got %d total", studyCount)
	}
	if milestoneCount < 4*numPrograms || milestoneCount > 8*numPrograms {
		t.Fatalf("expected 4-8 milestones per program, got %d total", milestoneCount)
	}

	var admin schema.User
	if result := db.First(&admin, "username = ?", "admin"); result.Error != nil {
		t.Fatal(result.Error)
	}
	if err := bcrypt.CompareHashAndPassword(admin.PasswordHash, []byte("admin123")); err != nil {
		t.Fatal("admin fixture password should verify")
	}

	var programs []schema.Program
	if result := db.Find(&programs); result.Error != nil {
		t.Fatal(result.Error)
	}
	for _, p := range programs {
		if err := schema.CheckValidPhase(p.Phase); err != nil {
			t.Fatalf("seeded program %v has invalid phase: %v", p.Code, err)
		}
		if err := schema.CheckValidProgramStatus(p.Status); err != nil {
			t.Fatalf("seeded program %v has invalid status: %v", p.Code, err)
		}
	}
}

func TestSeedReplacesExistingData(t *testing.T) {
	db := setupDb(t)

	if err := Seed(db, 5, 1); err != nil {
		t.Fatal(err)
	}
	if err := Seed(db, 5, 2); err != nil {
		t.Fatal(err)
	}

	var programCount int64
	db.Model(&schema.Program{}).Count(&programCount)
	if programCount != 5 {
		t.Fatalf("reseeding should replace data, got %d programs", programCount)
	}
}
