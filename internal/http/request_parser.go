// Package http serves the JSON API.
//
// This file implements utilities for parsing and validating request data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"creatorfin/internal/core"
)

const (
	maxBodyBytes = 64 << 10
	minYear      = 1900
	maxYear      = 2999
)

// ParseYear reads the optional year query parameter. Zero means "current year".
func ParseYear(query url.Values) (int, error) {
	v := strings.TrimSpace(query.Get("year"))
	if v == "" {
		return 0, nil
	}
	y, err := strconv.Atoi(v)
	if err != nil || y < minYear || y > maxYear {
		return 0, &core.ValidationError{Field: "year", Reason: fmt.Sprintf("must be a number between %d and %d", minYear, maxYear)}
	}
	return y, nil
}

// DecodeJSON reads a bounded JSON body into dst.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return &core.ValidationError{Field: "body", Reason: "too large"}
		case errors.Is(err, io.EOF):
			return &core.ValidationError{Field: "body", Reason: "cannot be empty"}
		default:
			return &core.ValidationError{Field: "body", Reason: "malformed JSON"}
		}
	}
	if dec.More() {
		return &core.ValidationError{Field: "body", Reason: "must hold a single JSON object"}
	}
	return nil
}

// FlexAmount accepts an amount as a JSON number or string.
type FlexAmount string

func (a *FlexAmount) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = FlexAmount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*a = FlexAmount(n.String())
	return nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
