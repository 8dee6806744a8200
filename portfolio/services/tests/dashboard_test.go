package tests

import (
	"fmt"
	"net/http"
	"testing"

	"drug_portfolio/portfolio/schema"
)

type dashboardStats struct {
	TotalPrograms      int64            `json:"totalPrograms"`
	TotalStudies       int64            `json:"totalStudies"`
	TotalEnrollment    int64            `json:"totalEnrollment"`
	TargetEnrollment   int64            `json:"targetEnrollment"`
	ByPhase            map[string]int64 `json:"byPhase"`
	ByTherapeuticArea  map[string]int64 `json:"byTherapeuticArea"`
	ByStatus           map[string]int64 `json:"byStatus"`
	UpcomingMilestones []struct {
		schema.Milestone

		ProgramName string `json:"program_name"`
		ProgramCode string `json:"program_code"`
	} `json:"upcomingMilestones"`
	EnrollmentByPhase []struct {
		Phase             string `json:"phase"`
		CurrentEnrollment int64  `json:"current_enrollment"`
		TargetEnrollment  int64  `json:"target_enrollment"`
	} `json:"enrollmentByPhase"`
}

func TestDashboardStats(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	first := createProgram(t, admin, "ONC-001", "Oncology", "Phase II")
	second := createProgram(t, admin, "ONC-002", "Oncology", "Phase III")
	createProgram(t, admin, "IMM-001", "Immunology", "Phase I")

	createStudy(t, admin, first, 1, "Active", 200, 150)
	createStudy(t, admin, first, 2, "Recruiting", 100, 20)
	createStudy(t, admin, second, 1, "Active", 300, 100)

	createMilestone(t, admin, first, "Interim Analysis", "Pending", "2026-06-01")
	createMilestone(t, admin, second, "Primary Endpoint Readout", "In Progress", "2025-12-01")
	createMilestone(t, admin, first, "IND Filing", "Completed", "2023-01-01")

	var stats dashboardStats
	err = admin.Get("/dashboard").Do(&stats)
	if err != nil {
		t.Fatal(err)
	}

	if stats.TotalPrograms != 3 || stats.TotalStudies != 3 {
		t.Fatalf("unexpected totals: %+v", stats)
	}
	if stats.TotalEnrollment != 270 || stats.TargetEnrollment != 600 {
		t.Fatalf("unexpected enrollment sums: %+v", stats)
	}

	if stats.ByPhase["Phase II"] != 1 || stats.ByPhase["Phase III"] != 1 || stats.ByPhase["Phase I"] != 1 {
		t.Fatalf("unexpected byPhase: %+v", stats.ByPhase)
	}
	if stats.ByTherapeuticArea["Oncology"] != 2 || stats.ByTherapeuticArea["Immunology"] != 1 {
		t.Fatalf("unexpected byTherapeuticArea: %+v", stats.ByTherapeuticArea)
	}
	if stats.ByStatus["Active"] != 3 {
		t.Fatalf("unexpected byStatus: %+v", stats.ByStatus)
	}

	// Completed milestones are excluded, the rest are ordered soonest first
	// and carry the owning program's name and code.
	if len(stats.UpcomingMilestones) != 2 {
		t.Fatalf("expected 2 upcoming milestones, got %d", len(stats.UpcomingMilestones))
	}
	if stats.UpcomingMilestones[0].Title != "Primary Endpoint Readout" || stats.UpcomingMilestones[0].ProgramCode != "ONC-002" {
		t.Fatalf("unexpected first upcoming milestone: %+v", stats.UpcomingMilestones[0])
	}
	if stats.UpcomingMilestones[1].ProgramName != first.Name {
		t.Fatalf("expected program name to be joined in: %+v", stats.UpcomingMilestones[1])
	}

	byPhase := make(map[string][2]int64)
	for _, row := range stats.EnrollmentByPhase {
		byPhase[row.Phase] = [2]int64{row.CurrentEnrollment, row.TargetEnrollment}
	}
	if byPhase["Phase II"] != [2]int64{170, 300} || byPhase["Phase III"] != [2]int64{100, 300} {
		t.Fatalf("unexpected enrollmentByPhase: %+v", stats.EnrollmentByPhase)
	}
	// Phases whose programs have no studies still show up with zero sums.
	if byPhase["Phase I"] != [2]int64{0, 0} {
		t.Fatalf("expected zero enrollment for study-less phase: %+v", stats.EnrollmentByPhase)
	}
}

func TestDashboardUpcomingMilestoneLimit(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	program := createProgram(t, admin, "ONC-001", "Oncology", "Phase II")
	for i := 0; i < 12; i++ {
		createMilestone(t, admin, program, fmt.Sprintf("Milestone %d", i), "Pending", fmt.Sprintf("2026-01-%02d", i+1))
	}

	var stats dashboardStats
	err = admin.Get("/dashboard").Do(&stats)
	if err != nil {
		t.Fatal(err)
	}

	if len(stats.UpcomingMilestones) != 10 {
		t.Fatalf("expected upcoming milestones to cap at 10, got %d", len(stats.UpcomingMilestones))
	}
	for i := 1; i < len(stats.UpcomingMilestones); i++ {
		if *stats.UpcomingMilestones[i-1].PlannedDate > *stats.UpcomingMilestones[i].PlannedDate {
			t.Fatal("expected upcoming milestones sorted by planned date")
		}
	}
}

func TestDashboardEmpty(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	var stats dashboardStats
	err = admin.Get("/dashboard").Do(&stats)
	if err != nil {
		t.Fatal(err)
	}

	if stats.TotalPrograms != 0 || stats.TotalEnrollment != 0 {
		t.Fatalf("unexpected stats for empty db: %+v", stats)
	}
	if stats.ByPhase == nil || stats.UpcomingMilestones == nil || stats.EnrollmentByPhase == nil {
		t.Fatalf("empty aggregations should serialize as empty, not null: %+v", stats)
	}

	anon := env.newClient()
	err = anon.Get("/dashboard").Do(nil)
	if responseStatus(err) != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %v", err)
	}
}
