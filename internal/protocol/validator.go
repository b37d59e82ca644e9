package protocol

import (
	"fmt"
	"strings"

	"github.com/mattjbishop/rtpmidi/internal/rtperrors"
)

// ValidateName validates a DNS name per RFC 1035 §3.1, used when encoding
// configured names (mdns_name, instance labels) — not for the free-form
// DNS-SD instance-name portion of an owner name, which RFC 6763 §4.3 allows
// to contain arbitrary UTF-8 and is therefore not label-constrained.
func ValidateName(name string) error {
	if name == "" {
		return &rtperrors.ConfigurationError{Option: "name", Value: name, Message: "name cannot be empty"}
	}

	name = strings.TrimSuffix(name, ".")
	labels := strings.Split(name, ".")

	wireLength := 1
	for _, label := range labels {
		wireLength += 1 + len(label)
	}
	if wireLength > MaxNameLength {
		return &rtperrors.ConfigurationError{
			Option: "name", Value: name,
			Message: fmt.Sprintf("name exceeds maximum length %d bytes (wire format: %d bytes) per RFC 1035 §3.1", MaxNameLength, wireLength),
		}
	}
	for i, label := range labels {
		if err := validateLabel(label, i); err != nil {
			return &rtperrors.ConfigurationError{Option: "name", Value: name, Message: err.Error()}
		}
	}
	return nil
}

func validateLabel(label string, position int) error {
	if label == "" {
		return fmt.Errorf("empty label at position %d (consecutive dots)", position)
	}
	if len(label) > MaxLabelLength {
		return fmt.Errorf("label %q exceeds maximum length 63 bytes per RFC 1035 §3.1", label)
	}
	if strings.HasPrefix(label, "-") {
		return fmt.Errorf("label %q starts with hyphen (invalid per RFC 1035 §3.1)", label)
	}
	if strings.HasSuffix(label, "-") {
		return fmt.Errorf("label %q ends with hyphen (invalid per RFC 1035 §3.1)", label)
	}
	for i, ch := range label {
		if !isValidDNSChar(ch) {
			return fmt.Errorf("invalid character %q in label %q (position %d)", ch, label, i)
		}
	}
	return nil
}

// isValidDNSChar allows [a-zA-Z0-9-_]; underscore is not in RFC 1035 but is
// required for mDNS service-type labels like "_apple-midi".
func isValidDNSChar(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '-' ||
		ch == '_'
}

// ValidateSessionName checks the printability and non-emptiness of an
// inbound AppleMIDI invite's session name per spec.md §4.5 ("Validate
// session name is printable and null-terminated within the packet; else
// treat as unnamed"). It does not enforce DNS label rules: session names are
// arbitrary display strings, not domain labels.
func ValidateSessionName(name string) bool {
	if name == "" {
		return false
	}
	for _, b := range []byte(name) {
		if b < 0x20 || b > 0x7e {
			return false
		}
	}
	return true
}
