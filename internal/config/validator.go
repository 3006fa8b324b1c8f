package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string // The config field path (e.g., "service.base_url")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all
// validation errors found.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateService()...)
	errors = append(errors, c.validateExecution()...)
	errors = append(errors, c.validateFeed()...)
	errors = append(errors, c.validateTUI()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateService() []ValidationError {
	var errors []ValidationError

	if c.Service.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "service.base_url",
			Value:   c.Service.BaseURL,
			Message: "must not be empty",
		})
	} else if u, err := url.Parse(c.Service.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		errors = append(errors, ValidationError{
			Field:   "service.base_url",
			Value:   c.Service.BaseURL,
			Message: "must be an http or https URL",
		})
	}

	if c.Service.StreamURL != "" {
		if u, err := url.Parse(c.Service.StreamURL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			errors = append(errors, ValidationError{
				Field:   "service.stream_url",
				Value:   c.Service.StreamURL,
				Message: "must be a ws or wss URL",
			})
		}
	}

	if c.Service.TimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "service.timeout_seconds",
			Value:   c.Service.TimeoutSeconds,
			Message: "must be positive",
		})
	}

	return errors
}

func (c *Config) validateExecution() []ValidationError {
	var errors []ValidationError

	if c.Execution.MaxConcurrentTasks < 1 {
		errors = append(errors, ValidationError{
			Field:   "execution.max_concurrent_tasks",
			Value:   c.Execution.MaxConcurrentTasks,
			Message: "must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateFeed() []ValidationError {
	var errors []ValidationError

	if c.Feed.Limit < 1 {
		errors = append(errors, ValidationError{
			Field:   "feed.limit",
			Value:   c.Feed.Limit,
			Message: "must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateTUI() []ValidationError {
	var errors []ValidationError

	if c.TUI.RefreshIntervalMs < 50 {
		errors = append(errors, ValidationError{
			Field:   "tui.refresh_interval_ms",
			Value:   c.TUI.RefreshIntervalMs,
			Message: "must be at least 50",
		})
	}
	if c.TUI.MaxOutputLines < 10 {
		errors = append(errors, ValidationError{
			Field:   "tui.max_output_lines",
			Value:   c.TUI.MaxOutputLines,
			Message: "must be at least 10",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
