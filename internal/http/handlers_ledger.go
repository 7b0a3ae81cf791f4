package http

import (
	"net/http"
	"time"

	"creatorfin/internal/core"
	"creatorfin/internal/log"
)

type createEarningRequest struct {
	Source   string     `json:"source"`
	Amount   FlexAmount `json:"amount"`
	Date     string     `json:"date"`
	Platform string     `json:"platform"`
}

type createExpenseRequest struct {
	Category     string     `json:"category"`
	Amount       FlexAmount `json:"amount"`
	Date         string     `json:"date"`
	Description  string     `json:"description"`
	IsDeductible *bool      `json:"isDeductible"`
}

type earningResponse struct {
	ID        int64   `json:"id"`
	Source    string  `json:"source"`
	Amount    float64 `json:"amount"`
	Date      string  `json:"date"`
	Platform  string  `json:"platform"`
	CreatedAt string  `json:"createdAt"`
}

type expenseResponse struct {
	ID           int64   `json:"id"`
	Category     string  `json:"category"`
	Amount       float64 `json:"amount"`
	Date         string  `json:"date"`
	Description  string  `json:"description"`
	IsDeductible bool    `json:"isDeductible"`
	CreatedAt    string  `json:"createdAt"`
}

func toEarningResponse(e core.Earning) earningResponse {
	return earningResponse{
		ID:        e.ID,
		Source:    e.Source,
		Amount:    money(e.Amount),
		Date:      e.Date.String(),
		Platform:  e.Platform,
		CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:           e.ID,
		Category:     string(e.Category),
		Amount:       money(e.Amount),
		Date:         e.Date.String(),
		Description:  e.Description,
		IsDeductible: e.IsDeductible,
		CreatedAt:    e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleListEarnings(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.userFrom(w, r)
	if !ok {
		return
	}
	items, err := s.ledger.ListEarnings(r.Context(), uid)
	if err != nil {
		s.writeServiceError(w, r, err, log.OpList, "Failed to fetch earnings")
		return
	}
	out := make([]earningResponse, 0, len(items))
	for _, e := range items {
		out = append(out, toEarningResponse(e))
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleCreateEarning(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.userFrom(w, r)
	if !ok {
		return
	}
	var req createEarningRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err, log.OpCreate, "Failed to create earning")
		return
	}

	amount, err := core.ParseAmount(string(req.Amount))
	if err != nil {
		s.writeServiceError(w, r, err, log.OpCreate, "Failed to create earning")
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		s.writeServiceError(w, r, err, log.OpCreate, "Failed to create earning")
		return
	}

	saved, err := s.ledger.CreateEarning(r.Context(), core.Earning{
		UserID:   uid,
		Source:   sanitizeInput(req.Source),
		Amount:   amount,
		Date:     date,
		Platform: sanitizeInput(req.Platform),
	})
	if err != nil {
		s.writeServiceError(w, r, err, log.OpCreate, "Failed to create earning")
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toEarningResponse(saved)).Write(w)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.userFrom(w, r)
	if !ok {
		return
	}
	items, err := s.ledger.ListExpenses(r.Context(), uid)
	if err != nil {
		s.writeServiceError(w, r, err, log.OpList, "Failed to fetch expenses")
		return
	}
	out := make([]expenseResponse, 0, len(items))
	for _, e := range items {
		out = append(out, toExpenseResponse(e))
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.userFrom(w, r)
	if !ok {
		return
	}
	var req createExpenseRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err, log.OpCreate, "Failed to create expense")
		return
	}

	category, err := core.ParseExpenseCategory(req.Category)
	if err != nil {
		s.writeServiceError(w, r, err, log.OpCreate, "Failed to create expense")
		return
	}
	amount, err := core.ParseAmount(string(req.Amount))
	if err != nil {
		s.writeServiceError(w, r, err, log.OpCreate, "Failed to create expense")
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		s.writeServiceError(w, r, err, log.OpCreate, "Failed to create expense")
		return
	}
	deductible := true
	if req.IsDeductible != nil {
		deductible = *req.IsDeductible
	}

	saved, err := s.ledger.CreateExpense(r.Context(), core.Expense{
		UserID:       uid,
		Category:     category,
		Amount:       amount,
		Date:         date,
		Description:  sanitizeInput(req.Description),
		IsDeductible: deductible,
	})
	if err != nil {
		s.writeServiceError(w, r, err, log.OpCreate, "Failed to create expense")
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toExpenseResponse(saved)).Write(w)
}
