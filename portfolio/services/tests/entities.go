package tests

import (
	"fmt"
	"testing"

	"drug_portfolio/portfolio/schema"
)

// page mirrors the envelope returned by the list endpoints.
type page[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int64 `json:"totalPages"`
}

func createProgram(t *testing.T, c client, code, area, phase string) schema.Program {
	var program schema.Program
	err := c.Post("/programs").Json(map[string]string{
		"name":             "Program " + code,
		"code":             code,
		"therapeutic_area": area,
		"phase":            phase,
		"indication":       "Test Indication",
	}).Do(&program)
	if err != nil {
		t.Fatalf("error creating program %v: %v", code, err)
	}
	return program
}

func createStudy(t *testing.T, c client, program schema.Program, n int, status string, targetEnroll, currentEnroll int) schema.Study {
	var study schema.Study
	err := c.Post("/studies").Json(map[string]interface{}{
		"program_id":         program.Id,
		"name":               fmt.Sprintf("%v Study %d", program.Code, n),
		"protocol_number":    fmt.Sprintf("%v-%02d", program.Code, n),
		"phase":              program.Phase,
		"status":             status,
		"target_enrollment":  targetEnroll,
		"current_enrollment": currentEnroll,
	}).Do(&study)
	if err != nil {
		t.Fatalf("error creating study for program %v: %v", program.Code, err)
	}
	return study
}

func createMilestone(t *testing.T, c client, program schema.Program, title, status, plannedDate string) schema.Milestone {
	var milestone schema.Milestone
	err := c.Post("/milestones").Json(map[string]interface{}{
		"program_id":   program.Id,
		"title":        title,
		"category":     "Clinical",
		"status":       status,
		"planned_date": plannedDate,
	}).Do(&milestone)
	if err != nil {
		t.Fatalf("error creating milestone for program %v: %v", program.Code, err)
	}
	return milestone
}
