package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ValidateConfig validates the entire configuration and returns all validation errors
func (c *Config) ValidateConfig() error {
	var validationErrors ValidationErrors

	sections := []struct {
		name  string
		value interface{}
		isNil bool
	}{
		{"general", c.General, c.General == nil},
		{"connectivity", c.Connectivity, c.Connectivity == nil},
		{"dns", c.DNS, c.DNS == nil},
	}
	for _, s := range sections {
		if s.isNil {
			validationErrors = append(validationErrors, ValidationError{
				FieldPath: s.name,
				Message:   fmt.Sprintf("configuration must contain '%s' section", s.name),
			})
			continue
		}
		if err := validate.Struct(s.value); err != nil {
			validationErrors = append(validationErrors, convertValidatorErrors(err, s.name)...)
		}
	}

	if c.Proxy != nil {
		if err := validate.Struct(c.Proxy); err != nil {
			validationErrors = append(validationErrors, convertValidatorErrors(err, "proxy")...)
		}
	}

	if c.DNS != nil {
		validationErrors = append(validationErrors, c.validateHosts()...)
	}

	if len(validationErrors) > 0 {
		return validationErrors
	}

	return nil
}

func (c *Config) validateHosts() ValidationErrors {
	var validationErrors ValidationErrors
	seen := make(map[string]bool)

	for i, host := range c.DNS.Hosts {
		if seen[host] {
			validationErrors = append(validationErrors, ValidationError{
				FieldPath: fmt.Sprintf("dns.hosts.%d", i),
				Message:   fmt.Sprintf("duplicate host: %s", host),
			})
		}
		seen[host] = true
	}

	if len(c.DNS.Hosts) > c.DNS.CacheMaxHosts && c.DNS.CacheMaxHosts > 0 {
		validationErrors = append(validationErrors, ValidationError{
			FieldPath: "dns.hosts",
			Message:   fmt.Sprintf("%d hosts configured but cache_max_hosts is %d", len(c.DNS.Hosts), c.DNS.CacheMaxHosts),
		})
	}

	return validationErrors
}

// convertValidatorErrors converts go-playground/validator errors to our ValidationError format
func convertValidatorErrors(err error, fieldPrefix string) ValidationErrors {
	var validationErrors ValidationErrors

	var validatorErrs validator.ValidationErrors
	if errors.As(err, &validatorErrs) {
		for _, e := range validatorErrs {
			fieldPath := fieldPrefix
			// e.Field() returns the TOML tag name because we registered TagNameFunc
			if e.Field() != "" {
				fieldPath = fieldPrefix + "." + e.Field()
			}

			validationErrors = append(validationErrors, ValidationError{
				FieldPath: fieldPath,
				Message:   getValidationMessage(e),
			})
		}
	}

	return validationErrors
}
