package tests

import (
	"fmt"
	"net/http"
	"testing"

	"drug_portfolio/portfolio/schema"
)

type programRow struct {
	schema.Program

	StudyCount          int `json:"study_count"`
	TotalEnrollment     int `json:"total_enrollment"`
	TargetEnrollment    int `json:"target_enrollment"`
	MilestoneCount      int `json:"milestone_count"`
	CompletedMilestones int `json:"completed_milestones"`
}

type programDetail struct {
	schema.Program

	Studies    []schema.Study     `json:"studies"`
	Milestones []schema.Milestone `json:"milestones"`
}

func TestProgramCrud(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	program := createProgram(t, admin, "ONC-001", "Oncology", "Phase II")
	if program.Status != "Active" {
		t.Fatalf("expected default status Active, got %v", program.Status)
	}

	var detail programDetail
	err = admin.Get("/programs/" + program.Id.String()).Do(&detail)
	if err != nil {
		t.Fatal(err)
	}
	if detail.Code != "ONC-001" || detail.Studies == nil || detail.Milestones == nil {
		t.Fatalf("unexpected program detail: %+v", detail)
	}

	var updated schema.Program
	err = admin.Put("/programs/" + program.Id.String()).Json(map[string]string{"status": "On Hold"}).Do(&updated)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != "On Hold" || updated.Name != program.Name {
		t.Fatalf("patch should only change provided fields: %+v", updated)
	}

	err = admin.Delete("/programs/" + program.Id.String()).Do(nil)
	if err != nil {
		t.Fatal(err)
	}

	err = admin.Get("/programs/" + program.Id.String()).Do(nil)
	if responseStatus(err) != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %v", err)
	}
}

func TestProgramValidation(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	err = admin.Post("/programs").Json(map[string]string{"name": "no code"}).Do(nil)
	if responseStatus(err) != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing fields, got %v", err)
	}

	err = admin.Post("/programs").Json(map[string]string{
		"name": "Bad Phase", "code": "BAD-001", "therapeutic_area": "Oncology",
		"phase": "Phase IX", "indication": "Testing",
	}).Do(nil)
	if responseStatus(err) != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid phase, got %v", err)
	}

	createProgram(t, admin, "ONC-001", "Oncology", "Phase I")
	err = admin.Post("/programs").Json(map[string]string{
		"name": "Duplicate", "code": "ONC-001", "therapeutic_area": "Oncology",
		"phase": "Phase I", "indication": "Testing",
	}).Do(nil)
	if responseStatus(err) != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate code, got %v", err)
	}

	err = admin.Put("/programs/" + createProgram(t, admin, "ONC-002", "Oncology", "Phase I").Id.String()).
		Json(map[string]string{"status": "Paused"}).Do(nil)
	if responseStatus(err) != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid status, got %v", err)
	}
}

func TestProgramPermissions(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}
	pm, err := env.newUser("pm_user", "portfolio_manager")
	if err != nil {
		t.Fatal(err)
	}
	viewer, err := env.newUser("viewer_user", "viewer")
	if err != nil {
		t.Fatal(err)
	}

	err = viewer.Post("/programs").Json(map[string]string{
		"name": "Denied", "code": "DEN-001", "therapeutic_area": "Oncology",
		"phase": "Phase I", "indication": "Testing",
	}).Do(nil)
	if responseStatus(err) != http.StatusForbidden {
		t.Fatalf("expected 403 for viewer create, got %v", err)
	}

	program := createProgram(t, pm, "ONC-001", "Oncology", "Phase I")

	err = viewer.Get("/programs/" + program.Id.String()).Do(nil)
	if err != nil {
		t.Fatalf("viewer should be able to read programs: %v", err)
	}

	err = viewer.Put("/programs/" + program.Id.String()).Json(map[string]string{"status": "On Hold"}).Do(nil)
	if responseStatus(err) != http.StatusForbidden {
		t.Fatalf("expected 403 for viewer update, got %v", err)
	}

	err = pm.Delete("/programs/" + program.Id.String()).Do(nil)
	if responseStatus(err) != http.StatusForbidden {
		t.Fatalf("expected 403 for portfolio manager delete, got %v", err)
	}

	err = admin.Delete("/programs/" + program.Id.String()).Do(nil)
	if err != nil {
		t.Fatalf("admin delete should succeed: %v", err)
	}
}

func TestProgramListPagination(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 25; i++ {
		createProgram(t, admin, fmt.Sprintf("ONC-%03d", i+1), "Oncology", "Phase I")
	}

	var res page[programRow]
	err = admin.Get("/programs").Do(&res)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Data) != 20 || res.Total != 25 || res.TotalPages != 2 || res.PageSize != 20 {
		t.Fatalf("unexpected first page: rows=%d total=%d totalPages=%d pageSize=%d", len(res.Data), res.Total, res.TotalPages, res.PageSize)
	}

	err = admin.Get("/programs?page=2").Do(&res)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Data) != 5 || res.Page != 2 {
		t.Fatalf("unexpected second page: rows=%d page=%d", len(res.Data), res.Page)
	}

	err = admin.Get("/programs?page=10").Do(&res)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Data) != 0 || res.Total != 25 {
		t.Fatalf("page past the end should be empty with correct total: rows=%d total=%d", len(res.Data), res.Total)
	}

	err = admin.Get("/programs?pageSize=500").Do(&res)
	if err != nil {
		t.Fatal(err)
	}
	if res.PageSize != 100 || len(res.Data) != 25 {
		t.Fatalf("oversized pageSize should clamp to 100: pageSize=%d rows=%d", res.PageSize, len(res.Data))
	}

	err = admin.Get("/programs?sortBy=code&sortOrder=desc&pageSize=5").Do(&res)
	if err != nil {
		t.Fatal(err)
	}
	if res.Data[0].Code != "ONC-025" {
		t.Fatalf("expected descending sort by code, got first row %v", res.Data[0].Code)
	}

	// Unknown sort columns fall back to the default instead of erroring.
	err = admin.Get("/programs?sortBy=password_hash&pageSize=5").Do(&res)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Data) != 5 {
		t.Fatalf("unexpected rows for fallback sort: %d", len(res.Data))
	}
}

func TestProgramListFiltersAndSearch(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	createProgram(t, admin, "ONC-001", "Oncology", "Phase I")
	createProgram(t, admin, "ONC-002", "Oncology", "Phase III")
	createProgram(t, admin, "IMM-001", "Immunology", "Phase I")

	var res page[programRow]

	err = admin.Get("/programs?therapeutic_area=Oncology").Do(&res)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 2 {
		t.Fatalf("expected 2 oncology programs, got %d", res.Total)
	}

	err = admin.Get("/programs?therapeutic_area=Oncology&phase=Phase+III").Do(&res)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 1 || res.Data[0].Code != "ONC-002" {
		t.Fatalf("unexpected combined filter result: %+v", res)
	}

	err = admin.Get("/programs?search=IMM").Do(&res)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 1 || res.Data[0].Code != "IMM-001" {
		t.Fatalf("unexpected search result: %+v", res)
	}

	err = admin.Get("/programs?status=Terminated").Do(&res)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 0 || res.Data == nil {
		t.Fatalf("zero match filter should return empty data array: %+v", res)
	}

	var filters struct {
		Phases           []string `json:"phases"`
		TherapeuticAreas []string `json:"therapeutic_areas"`
		Statuses         []string `json:"statuses"`
	}
	err = admin.Get("/programs/filters").Do(&filters)
	if err != nil {
		t.Fatal(err)
	}
	if len(filters.Phases) != 2 || len(filters.TherapeuticAreas) != 2 || len(filters.Statuses) != 1 {
		t.Fatalf("unexpected filter values: %+v", filters)
	}
}

func TestProgramListStats(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	program := createProgram(t, admin, "ONC-001", "Oncology", "Phase II")
	createStudy(t, admin, program, 1, "Active", 200, 150)
	createStudy(t, admin, program, 2, "Recruiting", 100, 30)
	createMilestone(t, admin, program, "First Patient In", "Completed", "2024-03-01")
	createMilestone(t, admin, program, "Interim Analysis", "Pending", "2026-06-01")

	// Second program with no studies or milestones to check the zero case.
	createProgram(t, admin, "IMM-001", "Immunology", "Phase I")

	var res page[programRow]
	err = admin.Get("/programs?sortBy=code").Do(&res)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 2 {
		t.Fatalf("expected 2 programs, got %d", res.Total)
	}

	withStats := res.Data[1]
	if withStats.StudyCount != 2 || withStats.TotalEnrollment != 180 || withStats.TargetEnrollment != 300 {
		t.Fatalf("unexpected study stats: %+v", withStats)
	}
	if withStats.MilestoneCount != 2 || withStats.CompletedMilestones != 1 {
		t.Fatalf("unexpected milestone stats: %+v", withStats)
	}

	empty := res.Data[0]
	if empty.StudyCount != 0 || empty.TotalEnrollment != 0 || empty.MilestoneCount != 0 {
		t.Fatalf("expected zeroed stats for empty program: %+v", empty)
	}
}

func TestProgramDeleteCascades(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	program := createProgram(t, admin, "ONC-001", "Oncology", "Phase II")
	study := createStudy(t, admin, program, 1, "Active", 100, 50)
	milestone := createMilestone(t, admin, program, "IND Filing", "Pending", "2026-01-01")

	err = admin.Delete("/programs/" + program.Id.String()).Do(nil)
	if err != nil {
		t.Fatal(err)
	}

	err = admin.Get("/studies/" + study.Id.String()).Do(nil)
	if responseStatus(err) != http.StatusNotFound {
		t.Fatalf("expected study to be deleted with program, got %v", err)
	}

	err = admin.Get("/milestones/" + milestone.Id.String()).Do(nil)
	if responseStatus(err) != http.StatusNotFound {
		t.Fatalf("expected milestone to be deleted with program, got %v", err)
	}
}
