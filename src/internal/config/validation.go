package config

import (
	"fmt"
	"net"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// getValidationMessage returns a human-readable message for a validation error
func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "field is required"
	case "min":
		return fmt.Sprintf("must be >= %s", e.Param())
	case "max":
		return fmt.Sprintf("must be <= %s", e.Param())
	case "gte":
		return fmt.Sprintf("must be >= %s", e.Param())
	case "hostname_rfc1123":
		return "must be a valid hostname"
	case "hostport_or_empty":
		return "must be in format 'host:port' or empty"
	case "dns_upstream":
		return "must be a valid DNS upstream (udp://ip:port or tcp://ip:port)"
	default:
		return fmt.Sprintf("validation failed: %s", e.Tag())
	}
}

// ValidationError represents a single validation error with context
type ValidationError struct {
	FieldPath string // Dot-notation field path (e.g., "dns.upstream")
	Message   string // Human-readable error message
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("validation failed with %d error(s):\n", len(ve)))
	for i, err := range ve {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.FieldPath, err.Message))
	}
	return sb.String()
}

var validate *validator.Validate

func init() {
	validate = validator.New()

	if err := validate.RegisterValidation("hostport_or_empty", validateHostPortOrEmpty); err != nil {
		panic(err)
	}
	if err := validate.RegisterValidation("dns_upstream", validateDNSUpstreamTag); err != nil {
		panic(err)
	}

	// Register function to get field name from "toml" tag
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("toml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Custom validator: host:port format or empty
func validateHostPortOrEmpty(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, _, err := net.SplitHostPort(value)
	return err == nil
}

// Custom validator: DNS upstream URL
func validateDNSUpstreamTag(fl validator.FieldLevel) bool {
	_, _, err := ParseDNSUpstream(fl.Field().String())
	return err == nil
}

// ParseDNSUpstream splits a udp:// or tcp:// upstream into network and address.
func ParseDNSUpstream(upstream string) (network string, address string, err error) {
	for _, scheme := range []string{"udp", "tcp"} {
		prefix := scheme + "://"
		if !strings.HasPrefix(upstream, prefix) {
			continue
		}
		addr := strings.TrimPrefix(upstream, prefix)
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			return "", "", fmt.Errorf("invalid %s upstream format (expected %sip:port)", scheme, prefix)
		}
		if net.ParseIP(host) == nil {
			return "", "", fmt.Errorf("upstream host must be an IP address: %s", host)
		}
		return scheme, addr, nil
	}
	return "", "", fmt.Errorf("unsupported upstream scheme (supported: udp://, tcp://)")
}
