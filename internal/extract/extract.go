// Package extract maps a parsed profile snapshot to record fields.
//
// Each field has its own extractor and extractors do not depend on each
// other. A missing section, or even a panic inside one extractor, yields an
// empty contribution for that field and nothing else.
package extract

import (
	"fmt"
	"strings"

	"github.com/jonathan/profile-scraper/internal/dom"
	"github.com/jonathan/profile-scraper/internal/types"
)

// Outcome is one extractor's result. Exactly one of Text and Entries is
// meaningful, depending on the field. Err is a *GapError when the field
// contributed nothing.
type Outcome struct {
	Field   types.Field
	Text    string
	Entries map[string]string
	Err     error
}

// Gap reports whether the field came back empty.
func (o Outcome) Gap() bool {
	return o.Err != nil
}

// Func extracts one field from a document.
type Func func(doc dom.Node, sel Selectors) Outcome

type fieldFunc struct {
	field types.Field
	fn    Func
}

// Extractor runs the field extractors over documents.
type Extractor struct {
	sel   Selectors
	funcs []fieldFunc
}

// New returns an Extractor for every record field.
func New(sel Selectors) *Extractor {
	return &Extractor{
		sel: sel,
		funcs: []fieldFunc{
			{types.FieldName, Name},
			{types.FieldBio, Bio},
			{types.FieldSocials, Socials},
			{types.FieldExperience, Experience},
			{types.FieldEducation, Education},
			{types.FieldCertifications, Certifications},
			{types.FieldProjects, Projects},
		},
	}
}

// Default returns an Extractor with DefaultSelectors.
func Default() *Extractor {
	return New(DefaultSelectors())
}

// Run executes every extractor against doc. A panicking extractor is
// converted into a gap for its field.
func (e *Extractor) Run(doc dom.Node) []Outcome {
	out := make([]Outcome, 0, len(e.funcs))
	for _, f := range e.funcs {
		out = append(out, safely(f.field, f.fn, doc, e.sel))
	}
	return out
}

func safely(field types.Field, fn Func, doc dom.Node, sel Selectors) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Field: field, Err: &GapError{Field: field, Cause: fmt.Errorf("panic: %v", r)}}
		}
	}()
	if doc == nil {
		return gap(field)
	}
	return fn(doc, sel)
}

// ApplyTo merges outcomes into rec. Gaps leave the field at its default.
func ApplyTo(rec *types.ProfileRecord, outcomes []Outcome) {
	rec.Normalize()
	for _, o := range outcomes {
		if o.Gap() {
			continue
		}
		switch o.Field {
		case types.FieldName:
			rec.Name = o.Text
		case types.FieldBio:
			rec.Bio = o.Text
		default:
			m := rec.Mapping(o.Field)
			if m == nil {
				continue
			}
			for k, v := range o.Entries {
				m[k] = v
			}
		}
	}
}

func gap(field types.Field) Outcome {
	return Outcome{Field: field, Err: &GapError{Field: field, Cause: ErrNoData}}
}

func text(field types.Field, s string) Outcome {
	if s == "" {
		return gap(field)
	}
	return Outcome{Field: field, Text: s}
}

func entries(field types.Field, m map[string]string) Outcome {
	if len(m) == 0 {
		return gap(field)
	}
	return Outcome{Field: field, Entries: m}
}

// Name extracts the display name.
func Name(doc dom.Node, sel Selectors) Outcome {
	return text(types.FieldName, dom.FirstText(doc, sel.Name))
}

// Bio extracts the headline shown under the name.
func Bio(doc dom.Node, sel Selectors) Outcome {
	return text(types.FieldBio, dom.FirstText(doc, sel.Bio))
}

// Socials extracts recognized links from the contact-info region.
func Socials(doc dom.Node, sel Selectors) Outcome {
	found := map[string]string{}
	for _, a := range doc.All(sel.SocialLinks) {
		href, _ := a.Attr("href")
		if label, value, ok := ClassifySocial(href, a.Text()); ok {
			found[label] = value
		}
	}
	return entries(types.FieldSocials, found)
}

var socialPlatforms = []struct {
	needle string
	label  string
}{
	{"twitter", "Twitter"},
	{"github", "GitHub"},
	{"facebook", "Facebook"},
	{"instagram", "Instagram"},
}

// ClassifySocial labels a contact link by its href, case-insensitively and
// first match wins. Platform links keep the anchor text; personal sites keep
// the href.
func ClassifySocial(href, linkText string) (label, value string, ok bool) {
	lower := strings.ToLower(href)
	for _, p := range socialPlatforms {
		if strings.Contains(lower, p.needle) {
			return p.label, strings.TrimSpace(linkText), true
		}
	}
	if strings.Contains(lower, "website") || strings.Contains(lower, "portfolio") {
		return "Website", strings.TrimSpace(href), true
	}
	return "", "", false
}

// Experience maps organization to role. Entries missing either are dropped.
func Experience(doc dom.Node, sel Selectors) Outcome {
	found := map[string]string{}
	for _, item := range doc.All(sel.ExperienceItem) {
		org := dom.FirstText(item, sel.ExperienceOrg)
		role := dom.FirstText(item, sel.ExperienceRole)
		if org == "" || role == "" {
			continue
		}
		found[org] = role
	}
	return entries(types.FieldExperience, found)
}

// Education maps institution to credential. The credential may be empty.
func Education(doc dom.Node, sel Selectors) Outcome {
	found := map[string]string{}
	for _, item := range doc.All(sel.EducationItem) {
		school := dom.FirstText(item, sel.EducationSchool)
		if school == "" {
			continue
		}
		found[school] = dom.FirstText(item, sel.EducationDegree)
	}
	return entries(types.FieldEducation, found)
}

// Certifications maps issuer to certification name; both are required.
func Certifications(doc dom.Node, sel Selectors) Outcome {
	found := map[string]string{}
	for _, item := range doc.All(sel.CertificationItem) {
		name := dom.FirstText(item, sel.CertificationName)
		issuer := dom.FirstText(item, sel.CertificationIssuer)
		if name == "" || issuer == "" {
			continue
		}
		found[issuer] = name
	}
	return entries(types.FieldCertifications, found)
}

// Projects maps title to description. The description may be empty.
func Projects(doc dom.Node, sel Selectors) Outcome {
	found := map[string]string{}
	for _, item := range doc.All(sel.ProjectItem) {
		title := dom.FirstText(item, sel.ProjectTitle)
		if title == "" {
			continue
		}
		found[title] = dom.FirstText(item, sel.ProjectDescription)
	}
	return entries(types.FieldProjects, found)
}
