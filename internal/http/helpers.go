package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"creatorfin/internal/identity"
)

// Disclaimer accompanies every tax figure.
const Disclaimer = "This is an estimate. Consult a CPA for accurate tax planning."

var hundred = decimal.NewFromInt(100)

// money renders an amount as a JSON number rounded to cents.
func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// userFrom returns the authenticated caller or writes a 401.
func (s *Server) userFrom(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid, err := identity.UserID(r.Context())
	if err != nil {
		ErrorResponse(http.StatusUnauthorized, "unauthenticated").Write(w)
		return "", false
	}
	return uid, true
}
