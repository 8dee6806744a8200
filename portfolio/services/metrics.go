package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginMetric         = promauto.NewSummary(prometheus.SummaryOpts{Name: "portfolio_login", Help: "Login requests"})
	programListMetric   = promauto.NewSummary(prometheus.SummaryOpts{Name: "portfolio_program_list", Help: "Program list queries"})
	studyListMetric     = promauto.NewSummary(prometheus.SummaryOpts{Name: "portfolio_study_list", Help: "Study list queries"})
	milestoneListMetric = promauto.NewSummary(prometheus.SummaryOpts{Name: "portfolio_milestone_list", Help: "Milestone list queries"})
	dashboardMetric     = promauto.NewSummary(prometheus.SummaryOpts{Name: "portfolio_dashboard", Help: "Dashboard aggregations"})
)
