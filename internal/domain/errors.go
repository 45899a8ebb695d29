package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBookNotFound     = errors.New("book not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrNoValidItems     = errors.New("no valid books found to create the order")
	ErrNegativeStock    = errors.New("stock cannot go below zero")
)

// ToolError is the structured, user-facing form of a failed tool call.
type ToolError struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Warnings []string `json:"warnings,omitempty"`
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NoValidItemsError is returned when every line of an order was skipped.
type NoValidItemsError struct {
	Warnings []string
}

func (e *NoValidItemsError) Error() string {
	if len(e.Warnings) == 0 {
		return "No valid books found to create the order."
	}
	return "No valid books found to create the order. " + strings.Join(e.Warnings, " ")
}

func (e *NoValidItemsError) Unwrap() error {
	return ErrNoValidItems
}
