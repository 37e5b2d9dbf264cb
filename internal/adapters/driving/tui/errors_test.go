package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_AreDistinct(t *testing.T) {
	errors := []error{
		ErrMissingCompanyService,
		ErrMissingReportService,
		ErrInvalidPorts,
	}

	seen := make(map[string]bool)
	for _, err := range errors {
		msg := err.Error()
		assert.False(t, seen[msg], "duplicate error message: %s", msg)
		seen[msg] = true
	}
}

func TestErrMissingCompanyService_Message(t *testing.T) {
	assert.Contains(t, ErrMissingCompanyService.Error(), "company service")
}

func TestErrMissingReportService_Message(t *testing.T) {
	assert.Contains(t, ErrMissingReportService.Error(), "report service")
}
