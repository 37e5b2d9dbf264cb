package tui

import "errors"

// ErrMissingCompanyService is returned when the company service is not provided.
var ErrMissingCompanyService = errors.New("tui: company service is required")

// ErrMissingReportService is returned when the report service is not provided.
var ErrMissingReportService = errors.New("tui: report service is required")

// ErrInvalidPorts is returned when ports validation fails.
var ErrInvalidPorts = errors.New("tui: invalid ports configuration")
