// Package types provides type definitions for structured data used throughout the profile-scraper system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"net/url"
	"strings"
)

// ProfileBaseURL is the prefix used to turn a bare handle into a profile URL.
const ProfileBaseURL = "https://www.linkedin.com/in/"

// ProfileIdentifier is an opaque locator for one profile: either an absolute
// URL or a handle such as "jdoe" or "in/jdoe".
type ProfileIdentifier string

// String returns the identifier exactly as it was supplied.
func (id ProfileIdentifier) String() string {
	return string(id)
}

// URL resolves the identifier to the address the browser should load.
// Absolute http(s) URLs are returned verbatim.
func (id ProfileIdentifier) URL() string {
	raw := strings.TrimSpace(string(id))
	if raw == "" {
		return ""
	}

	if parsed, err := url.Parse(raw); err == nil && parsed.Scheme != "" && parsed.Host != "" {
		return raw
	}

	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "www.") || strings.HasPrefix(lower, "linkedin.com/") {
		return "https://" + raw
	}

	handle := strings.Trim(raw, "/")
	handle = strings.TrimPrefix(handle, "@")
	handle = strings.TrimPrefix(handle, "in/")
	return ProfileBaseURL + url.PathEscape(handle) + "/"
}

// Field names one semantic section of a ProfileRecord.
type Field string

const (
	FieldName           Field = "name"
	FieldBio            Field = "bio"
	FieldSocials        Field = "socials"
	FieldExperience     Field = "experience"
	FieldEducation      Field = "education"
	FieldCertifications Field = "certifications"
	FieldProjects       Field = "projects"
)

// MappingFields lists the map-valued fields in output column order.
var MappingFields = []Field{
	FieldSocials,
	FieldExperience,
	FieldEducation,
	FieldCertifications,
	FieldProjects,
}

// ProfileRecord is the output unit: one per input identifier.
// Every field is always present; maps are never nil when built with NewProfileRecord.
type ProfileRecord struct {
	Source         string            `json:"source"`
	Name           string            `json:"name"`
	Bio            string            `json:"bio"`
	Socials        map[string]string `json:"socials"`
	Experience     map[string]string `json:"experience"`
	Education      map[string]string `json:"education"`
	Certifications map[string]string `json:"certifications"`
	Projects       map[string]string `json:"projects"`
}

// NewProfileRecord returns a structurally complete record for id with every
// other field at its empty default.
func NewProfileRecord(id ProfileIdentifier) ProfileRecord {
	return ProfileRecord{
		Source:         id.String(),
		Socials:        map[string]string{},
		Experience:     map[string]string{},
		Education:      map[string]string{},
		Certifications: map[string]string{},
		Projects:       map[string]string{},
	}
}

// Mapping returns the map backing a map-valued field, or nil for scalar fields.
func (r *ProfileRecord) Mapping(f Field) map[string]string {
	switch f {
	case FieldSocials:
		return r.Socials
	case FieldExperience:
		return r.Experience
	case FieldEducation:
		return r.Education
	case FieldCertifications:
		return r.Certifications
	case FieldProjects:
		return r.Projects
	default:
		return nil
	}
}

// Normalize replaces any nil map with an empty one so the record can be
// handed to a sink even if it was built by hand.
func (r *ProfileRecord) Normalize() {
	if r.Socials == nil {
		r.Socials = map[string]string{}
	}
	if r.Experience == nil {
		r.Experience = map[string]string{}
	}
	if r.Education == nil {
		r.Education = map[string]string{}
	}
	if r.Certifications == nil {
		r.Certifications = map[string]string{}
	}
	if r.Projects == nil {
		r.Projects = map[string]string{}
	}
}

// IsEmpty reports whether nothing beyond the source identifier was extracted.
func (r ProfileRecord) IsEmpty() bool {
	return r.Name == "" && r.Bio == "" &&
		len(r.Socials) == 0 &&
		len(r.Experience) == 0 &&
		len(r.Education) == 0 &&
		len(r.Certifications) == 0 &&
		len(r.Projects) == 0
}

// PopulatedFields counts the fields that carry data.
func (r ProfileRecord) PopulatedFields() int {
	n := 0
	if r.Name != "" {
		n++
	}
	if r.Bio != "" {
		n++
	}
	for _, f := range MappingFields {
		if len(r.Mapping(f)) > 0 {
			n++
		}
	}
	return n
}
