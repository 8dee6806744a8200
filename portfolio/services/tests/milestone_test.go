package tests

import (
	"net/http"
	"testing"

	"drug_portfolio/portfolio/schema"

	"github.com/google/uuid"
)

func TestMilestoneCrud(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	program := createProgram(t, admin, "ONC-001", "Oncology", "Phase II")
	milestone := createMilestone(t, admin, program, "IND Filing", "Pending", "2026-01-15")

	var fetched schema.Milestone
	err = admin.Get("/milestones/" + milestone.Id.String()).Do(&fetched)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Title != "IND Filing" || fetched.Status != "Pending" {
		t.Fatalf("unexpected milestone: %+v", fetched)
	}

	var updated schema.Milestone
	err = admin.Put("/milestones/" + milestone.Id.String()).Json(map[string]string{
		"status":      "Completed",
		"actual_date": "2026-02-01",
	}).Do(&updated)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != "Completed" || updated.ActualDate == nil || updated.Title != "IND Filing" {
		t.Fatalf("patch should only change provided fields: %+v", updated)
	}

	err = admin.Delete("/milestones/" + milestone.Id.String()).Do(nil)
	if err != nil {
		t.Fatal(err)
	}
	err = admin.Get("/milestones/" + milestone.Id.String()).Do(nil)
	if responseStatus(err) != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %v", err)
	}
}

func TestMilestoneValidation(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	program := createProgram(t, admin, "ONC-001", "Oncology", "Phase II")

	err = admin.Post("/milestones").Json(map[string]interface{}{
		"program_id": program.Id, "title": "No category",
	}).Do(nil)
	if responseStatus(err) != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing fields, got %v", err)
	}

	err = admin.Post("/milestones").Json(map[string]interface{}{
		"program_id": program.Id, "title": "Bad category", "category": "Financial",
	}).Do(nil)
	if responseStatus(err) != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid category, got %v", err)
	}

	err = admin.Post("/milestones").Json(map[string]interface{}{
		"program_id": uuid.New(), "title": "Orphan", "category": "Clinical",
	}).Do(nil)
	if responseStatus(err) != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown program, got %v", err)
	}

	err = admin.Post("/milestones").Json(map[string]interface{}{
		"program_id": program.Id, "study_id": uuid.New(), "title": "Bad study", "category": "Clinical",
	}).Do(nil)
	if responseStatus(err) != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown study, got %v", err)
	}
}

func TestMilestoneListFilters(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	program := createProgram(t, admin, "ONC-001", "Oncology", "Phase II")
	study := createStudy(t, admin, program, 1, "Active", 100, 10)

	createMilestone(t, admin, program, "Interim Analysis", "Pending", "2026-06-01")
	createMilestone(t, admin, program, "IND Filing", "Completed", "2024-01-01")

	var linked schema.Milestone
	err = admin.Post("/milestones").Json(map[string]interface{}{
		"program_id":   program.Id,
		"study_id":     study.Id,
		"title":        "First Patient In",
		"category":     "Clinical",
		"planned_date": "2025-03-01",
	}).Do(&linked)
	if err != nil {
		t.Fatal(err)
	}

	var res page[schema.Milestone]

	err = admin.Get("/milestones").Do(&res)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 3 {
		t.Fatalf("expected 3 milestones, got %d", res.Total)
	}
	// Fixed ordering by planned date, earliest first.
	if *res.Data[0].PlannedDate != "2024-01-01" || *res.Data[2].PlannedDate != "2026-06-01" {
		t.Fatalf("expected milestones ordered by planned_date: %+v", res.Data)
	}

	err = admin.Get("/milestones?status=Pending").Do(&res)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 2 {
		t.Fatalf("expected 2 pending milestones, got %d", res.Total)
	}

	err = admin.Get("/milestones?study_id=" + study.Id.String()).Do(&res)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 1 || res.Data[0].Id != linked.Id {
		t.Fatalf("unexpected study filter result: %+v", res)
	}

	err = admin.Get("/milestones?category=Clinical&status=Completed").Do(&res)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 1 || res.Data[0].Title != "IND Filing" {
		t.Fatalf("unexpected combined filter result: %+v", res)
	}
}
