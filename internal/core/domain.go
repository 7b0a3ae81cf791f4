package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	PlatformYouTube = "youtube"
	PlatformManual  = "manual"

	// SourceYouTubeAdRevenue labels earnings ingested by the analytics sync.
	SourceYouTubeAdRevenue = "YouTube Ad Revenue"

	DateLayout = "2006-01-02"
)

const (
	CategoryEquipment  ExpenseCategory = "Equipment"
	CategorySoftware   ExpenseCategory = "Software"
	CategoryHomeOffice ExpenseCategory = "HomeOffice"
	CategoryTravel     ExpenseCategory = "Travel"
	CategoryOther      ExpenseCategory = "Other"
)

type (
	ExpenseCategory string

	Date struct {
		time.Time
	}

	// Earning is immutable once stored. (UserID, Date, Platform, Source) is unique.
	Earning struct {
		ID        int64           `json:"id"`
		UserID    string          `json:"userId"`
		Source    string          `json:"source"`
		Amount    decimal.Decimal `json:"amount"`
		Date      Date            `json:"date"`
		Platform  string          `json:"platform"`
		CreatedAt time.Time       `json:"createdAt"`
	}

	Expense struct {
		ID           int64           `json:"id"`
		UserID       string          `json:"userId"`
		Category     ExpenseCategory `json:"category"`
		Amount       decimal.Decimal `json:"amount"`
		Date         Date            `json:"date"`
		Description  string          `json:"description"`
		IsDeductible bool            `json:"isDeductible"`
		CreatedAt    time.Time       `json:"createdAt"`
	}

	// AccountIdentity is the platform-side identity of a connected account.
	AccountIdentity struct {
		PlatformAccountID string `json:"platformAccountId"`
		DisplayName       string `json:"displayName,omitempty"`
	}

	// ConnectedAccount is unique per (UserID, Platform).
	ConnectedAccount struct {
		UserID       string
		Platform     string
		AccessToken  string
		RefreshToken string
		Identity     *AccountIdentity
		ConnectedAt  time.Time
		UpdatedAt    time.Time
	}
)

// ExpenseCategories lists the accepted expense categories.
func ExpenseCategories() []ExpenseCategory {
	return []ExpenseCategory{CategoryEquipment, CategorySoftware, CategoryHomeOffice, CategoryTravel, CategoryOther}
}

func (c ExpenseCategory) Valid() bool {
	for _, known := range ExpenseCategories() {
		if c == known {
			return true
		}
	}
	return false
}

// ParseExpenseCategory matches case-insensitively and tolerates "Home Office".
func ParseExpenseCategory(s string) (ExpenseCategory, error) {
	norm := strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	for _, known := range ExpenseCategories() {
		if strings.EqualFold(norm, string(known)) {
			return known, nil
		}
	}
	return "", &ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", s)}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) Date {
	t = t.UTC()
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, &ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return &ValidationError{Field: "date", Reason: "cannot be zero"}
	}
	return nil
}

// AddDays returns the date shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (e Earning) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return ErrUnauthenticated
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Source)) == 0 {
		return &ValidationError{Field: "source", Reason: "cannot be empty"}
	}
	if len(e.Source) > 100 {
		return &ValidationError{Field: "source", Reason: "too long (max 100 characters)"}
	}
	if len(e.Platform) > 50 {
		return &ValidationError{Field: "platform", Reason: "too long (max 50 characters)"}
	}
	return ValidateAmount(e.Amount)
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return ErrUnauthenticated
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if !e.Category.Valid() {
		return &ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", e.Category)}
	}
	if len(e.Description) > 500 {
		return &ValidationError{Field: "description", Reason: "too long (max 500 characters)"}
	}
	return ValidateAmount(e.Amount)
}
