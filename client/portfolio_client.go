// Package client is a thin Go wrapper over the portfolio REST api, intended
// for scripting and integration testing against a running server.
package client

import (
	"fmt"
	"strconv"

	"drug_portfolio/portfolio/pagination"
	"drug_portfolio/portfolio/schema"

	"github.com/google/uuid"
)

type PortfolioClient struct {
	BaseClient
	user UserInfo
}

func New(baseUrl string) *PortfolioClient {
	return &PortfolioClient{BaseClient: BaseClient{baseUrl: baseUrl}}
}

type UserInfo struct {
	Id       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
	FullName string    `json:"full_name"`
	Email    string    `json:"email,omitempty"`
}

func (c *PortfolioClient) Login(username, password string) error {
	var res struct {
		Token string   `json:"token"`
		User  UserInfo `json:"user"`
	}

	err := c.Post("/api/auth/login").Json(map[string]string{
		"username": username, "password": password,
	}).Do(&res)
	if err != nil {
		return err
	}

	c.authToken = res.Token
	c.user = res.User
	return nil
}

func (c *PortfolioClient) User() UserInfo {
	return c.user
}

func (c *PortfolioClient) Me() (UserInfo, error) {
	var user UserInfo
	err := c.Get("/api/auth/me").Do(&user)
	return user, err
}

// RegisterUser creates a new account, the logged in user must be an admin.
func (c *PortfolioClient) RegisterUser(username, password, role, fullName, email string) (UserInfo, error) {
	var user UserInfo
	err := c.Post("/api/auth/register").Json(map[string]string{
		"username": username, "password": password, "role": role, "full_name": fullName, "email": email,
	}).Do(&user)
	return user, err
}

func (c *PortfolioClient) Health() error {
	return c.Get("/api/health").Do(nil)
}

// ListOptions control pagination and filtering for the list endpoints. Zero
// values are omitted and the server defaults apply.
type ListOptions struct {
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
	Filters   map[string]string
}

func (o ListOptions) apply(r *httpRequest) *httpRequest {
	if o.Page != 0 {
		r = r.Param("page", strconv.Itoa(o.Page))
	}
	if o.PageSize != 0 {
		r = r.Param("pageSize", strconv.Itoa(o.PageSize))
	}
	if o.SortBy != "" {
		r = r.Param("sortBy", o.SortBy)
	}
	if o.SortOrder != "" {
		r = r.Param("sortOrder", o.SortOrder)
	}
	for k, v := range o.Filters {
		r = r.Param(k, v)
	}
	return r
}

type ProgramSummary struct {
	schema.Program

	StudyCount          int `json:"study_count"`
	TotalEnrollment     int `json:"total_enrollment"`
	TargetEnrollment    int `json:"target_enrollment"`
	MilestoneCount      int `json:"milestone_count"`
	CompletedMilestones int `json:"completed_milestones"`
}

type ProgramDetail struct {
	schema.Program

	Studies    []schema.Study     `json:"studies"`
	Milestones []schema.Milestone `json:"milestones"`
}

type ProgramFilters struct {
	Phases           []string `json:"phases"`
	TherapeuticAreas []string `json:"therapeutic_areas"`
	Statuses         []string `json:"statuses"`
}

func (c *PortfolioClient) ListPrograms(opts ListOptions) (pagination.Page[ProgramSummary], error) {
	var page pagination.Page[ProgramSummary]
	err := opts.apply(c.Get("/api/programs")).Do(&page)
	return page, err
}

func (c *PortfolioClient) GetProgramFilters() (ProgramFilters, error) {
	var filters ProgramFilters
	err := c.Get("/api/programs/filters").Do(&filters)
	return filters, err
}

func (c *PortfolioClient) GetProgram(id uuid.UUID) (ProgramDetail, error) {
	var detail ProgramDetail
	err := c.Get(fmt.Sprintf("/api/programs/%v", id)).Do(&detail)
	return detail, err
}

func (c *PortfolioClient) CreateProgram(args map[string]interface{}) (schema.Program, error) {
	var program schema.Program
	err := c.Post("/api/programs").Json(args).Do(&program)
	return program, err
}

// UpdateProgram applies a partial update, only the fields present in patch
// change.
func (c *PortfolioClient) UpdateProgram(id uuid.UUID, patch map[string]interface{}) (schema.Program, error) {
	var program schema.Program
	err := c.Put(fmt.Sprintf("/api/programs/%v", id)).Json(patch).Do(&program)
	return program, err
}

func (c *PortfolioClient) DeleteProgram(id uuid.UUID) error {
	return c.Delete(fmt.Sprintf("/api/programs/%v", id)).Do(nil)
}

type StudyDetail struct {
	schema.Study

	Milestones []schema.Milestone `json:"milestones"`
}

func (c *PortfolioClient) ListStudies(opts ListOptions) (pagination.Page[schema.Study], error) {
	var page pagination.Page[schema.Study]
	err := opts.apply(c.Get("/api/studies")).Do(&page)
	return page, err
}

func (c *PortfolioClient) GetStudy(id uuid.UUID) (StudyDetail, error) {
	var detail StudyDetail
	err := c.Get(fmt.Sprintf("/api/studies/%v", id)).Do(&detail)
	return detail, err
}

func (c *PortfolioClient) CreateStudy(args map[string]interface{}) (schema.Study, error) {
	var study schema.Study
	err := c.Post("/api/studies").Json(args).Do(&study)
	return study, err
}

func (c *PortfolioClient) UpdateStudy(id uuid.UUID, patch map[string]interface{}) (schema.Study, error) {
	var study schema.Study
	err := c.Put(fmt.Sprintf("/api/studies/%v", id)).Json(patch).Do(&study)
	return study, err
}

func (c *PortfolioClient) DeleteStudy(id uuid.UUID) error {
	return c.Delete(fmt.Sprintf("/api/studies/%v", id)).Do(nil)
}

func (c *PortfolioClient) ListMilestones(opts ListOptions) (pagination.Page[schema.Milestone], error) {
	var page pagination.Page[schema.Milestone]
	err := opts.apply(c.Get("/api/milestones")).Do(&page)
	return page, err
}

func (c *PortfolioClient) GetMilestone(id uuid.UUID) (schema.Milestone, error) {
	var milestone schema.Milestone
	err := c.Get(fmt.Sprintf("/api/milestones/%v", id)).Do(&milestone)
	return milestone, err
}

func (c *PortfolioClient) CreateMilestone(args map[string]interface{}) (schema.Milestone, error) {
	var milestone schema.Milestone
	err := c.Post("/api/milestones").Json(args).Do(&milestone)
	return milestone, err
}

func (c *PortfolioClient) UpdateMilestone(id uuid.UUID, patch map[string]interface{}) (schema.Milestone, error) {
	var milestone schema.Milestone
	err := c.Put(fmt.Sprintf("/api/milestones/%v", id)).Json(patch).Do(&milestone)
	return milestone, err
}

func (c *PortfolioClient) DeleteMilestone(id uuid.UUID) error {
	return c.Delete(fmt.Sprintf("/api/milestones/%v", id)).Do(nil)
}

type UpcomingMilestone struct {
	schema.Milestone

	ProgramName string `json:"program_name"`
	ProgramCode string `json:"program_code"`
}

type EnrollmentByPhase struct {
	Phase             string `json:"phase"`
	CurrentEnrollment int64  `json:"current_enrollment"`
	TargetEnrollment  int64  `json:"target_enrollment"`
}

type DashboardStats struct {
	TotalPrograms      int64               `json:"totalPrograms"`
	TotalStudies       int64               `json:"totalStudies"`
	TotalEnrollment    int64               `json:"totalEnrollment"`
	TargetEnrollment   int64               `json:"targetEnrollment"`
	ByPhase            map[string]int64    `json:"byPhase"`
	ByTherapeuticArea  map[string]int64    `json:"byTherapeuticArea"`
	ByStatus           map[string]int64    `json:"byStatus"`
	UpcomingMilestones []UpcomingMilestone `json:"upcomingMilestones"`
	EnrollmentByPhase  []EnrollmentByPhase `json:"enrollmentByPhase"`
}

func (c *PortfolioClient) GetDashboardStats() (DashboardStats, error) {
	var stats DashboardStats
	err := c.Get("/api/dashboard").Do(&stats)
	return stats, err
}
