package http

import (
	"net/http"

	"creatorfin/internal/log"
)

type dashboardResponse struct {
	TotalEarnings      float64  `json:"totalEarnings"`
	MonthlyEarnings    float64  `json:"monthlyEarnings"`
	ConnectedPlatforms []string `json:"connectedPlatforms"`
	AccountStatus      string   `json:"accountStatus"`
}

func (s *Server) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.userFrom(w, r)
	if !ok {
		return
	}
	sum, err := s.dashboard.Summary(r.Context(), uid)
	if err != nil {
		s.writeServiceError(w, r, err, log.OpRead, "Failed to fetch dashboard")
		return
	}
	platforms := sum.ConnectedPlatforms
	if platforms == nil {
		platforms = []string{}
	}
	NewJSONResponse().Body(dashboardResponse{
		TotalEarnings:      money(sum.TotalEarnings),
		MonthlyEarnings:    money(sum.MonthlyEarnings),
		ConnectedPlatforms: platforms,
		AccountStatus:      "active",
	}).Write(w)
}
