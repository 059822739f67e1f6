package settingsform

import (
	"errors"
	"fmt"
	"net"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
)

var (
	ErrContainsHTML = errors.New("value must not contain HTML")
	ErrInvalidEmail = errors.New("invalid email address")
	ErrInvalidURL   = errors.New("invalid URL")
	ErrInvalidIP    = errors.New("invalid IP address")
	ErrNoMaskMatch  = errors.New("value does not match the required format")
	ErrUnknownMask  = errors.New("unknown mask")
)

// ValidateMask checks a text value against a mask. Empty values are always accepted. Masks:
//   - nohtml: no < or > characters
//   - email: a single email address
//   - url: an absolute http or https URL
//   - ip: an IPv4 or IPv6 address
//   - ipcidr: an IP address or CIDR range
//   - regex:<expression>: the value must match the expression
func ValidateMask(mask string, value string) error {
	if mask == "" || value == "" {
		return nil
	}
	switch {
	case mask == "nohtml":
		if strings.ContainsAny(value, "<>") {
			return ErrContainsHTML
		}
	case mask == "email":
		addr, err := mail.ParseAddress(value)
		if err != nil || addr.Address != value {
			return ErrInvalidEmail
		}
	case mask == "url":
		u, err := url.Parse(value)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return ErrInvalidURL
		}
	case mask == "ip":
		if net.ParseIP(value) == nil {
			return ErrInvalidIP
		}
	case mask == "ipcidr":
		if net.ParseIP(value) == nil {
			if _, _, err := net.ParseCIDR(value); err != nil {
				return ErrInvalidIP
			}
		}
	case strings.HasPrefix(mask, "regex:"):
		re, err := regexp.Compile(strings.TrimPrefix(mask, "regex:"))
		if err != nil {
			return fmt.Errorf("invalid mask expression: %w", err)
		}
		if !re.MatchString(value) {
			return ErrNoMaskMatch
		}
	default:
		return fmt.Errorf("%w %q", ErrUnknownMask, mask)
	}
	return nil
}
