// Package qr decodes the identity payloads carried by teacher and student
// QR codes. The canonical format is plain text, whitespace separated:
// the last token is the program, the second-to-last the external id, and
// everything before them joined by single spaces is the holder's name.
package qr

import (
	"strings"

	"qrattend/internal/apperr"
)

// Identity is the structured triple decoded from a QR payload.
type Identity struct {
	Name       string
	ExternalID string
	Program    string
}

// Parse decodes the space-separated NAME... ID PROGRAM form.
func Parse(raw string) (Identity, error) {
	tokens := strings.Fields(raw)
	if len(tokens) < 3 {
		return Identity{}, apperr.Validation("invalid QR code format, expected NAME ID PROGRAM")
	}
	id := Identity{
		Name:       strings.Join(tokens[:len(tokens)-2], " "),
		ExternalID: tokens[len(tokens)-2],
		Program:    tokens[len(tokens)-1],
	}
	if id.Name == "" || id.ExternalID == "" || id.Program == "" {
		return Identity{}, apperr.Validation("QR code is missing a required field")
	}
	return id, nil
}

// ParseStudent decodes a student payload. Printed badges exist in two
// variants: pipe-delimited name|id|course and the space form handled by
// Parse. A payload containing a pipe is treated as the former.
func ParseStudent(raw string) (Identity, error) {
	if !strings.Contains(raw, "|") {
		return Parse(raw)
	}
	var parts []string
	for _, p := range strings.Split(raw, "|") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 3 {
		return Identity{}, apperr.Validation("invalid QR code format, expected NAME|ID|COURSE")
	}
	return Identity{Name: parts[0], ExternalID: parts[1], Program: parts[2]}, nil
}

// Format renders the canonical space-separated payload for an identity.
func Format(id Identity) string {
	return id.Name + " " + id.ExternalID + " " + id.Program
}
