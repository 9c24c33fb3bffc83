package extract

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/profile-scraper/internal/dom"
	"github.com/jonathan/profile-scraper/internal/types"
)

func loadFixture(t *testing.T) *dom.Document {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "profile.html"))
	require.NoError(t, err)
	doc, err := dom.Parse(string(data))
	require.NoError(t, err)
	return doc
}

func extractRecord(doc dom.Node) types.ProfileRecord {
	rec := types.NewProfileRecord("jdoe")
	ApplyTo(&rec, Default().Run(doc))
	return rec
}

func parseHTML(t *testing.T, html string) *dom.Document {
	t.Helper()
	doc, err := dom.Parse(html)
	require.NoError(t, err)
	return doc
}

func TestFullProfile(t *testing.T) {
	rec := extractRecord(loadFixture(t))

	want := types.ProfileRecord{
		Source: "jdoe",
		Name:   "Jane Doe",
		Bio:    "Staff Engineer building data pipelines",
		Socials: map[string]string{
			"GitHub":  "janedoe",
			"Twitter": "@jane_d",
			"Website": "https://janedoe.dev/portfolio",
		},
		Experience: map[string]string{
			"Acme Corp": "Staff Engineer",
			"Initech":   "Software Engineer",
		},
		Education: map[string]string{
			"State University": "BSc Computer Science",
			"Coding Bootcamp":  "",
		},
		Certifications: map[string]string{
			"CNCF": "Certified Kubernetes Administrator",
		},
		Projects: map[string]string{
			"Pipeline Toolkit": "Open-source ETL helpers",
			"Side Project":     "",
		},
	}

	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestExtraction_Idempotent(t *testing.T) {
	doc := loadFixture(t)

	first := extractRecord(doc)
	second := extractRecord(doc)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("extraction not idempotent (-first +second):\n%s", diff)
	}
}

func TestEmptyDocument_AllGaps(t *testing.T) {
	doc := parseHTML(t, `<html><body><p>nothing here</p></body></html>`)

	outcomes := Default().Run(doc)
	require.Len(t, outcomes, 7)
	for _, o := range outcomes {
		assert.True(t, o.Gap(), "field %s", o.Field)
		assert.ErrorIs(t, o.Err, ErrNoData)
	}

	rec := extractRecord(doc)
	assert.True(t, rec.IsEmpty())
	for _, f := range types.MappingFields {
		assert.NotNil(t, rec.Mapping(f), "field %s", f)
	}
}

func TestNilDocument(t *testing.T) {
	outcomes := Default().Run(nil)
	for _, o := range outcomes {
		assert.True(t, o.Gap())
	}
}

func TestSocials_NoContactRegion(t *testing.T) {
	doc := parseHTML(t, `<section class="pv-top-card"><h1 class="text-heading-xlarge">A</h1></section>`)

	out := Socials(doc, DefaultSelectors())
	assert.True(t, out.Gap())

	rec := extractRecord(doc)
	assert.Equal(t, map[string]string{}, rec.Socials)
	assert.Equal(t, "A", rec.Name)
}

func TestSocials_Classification(t *testing.T) {
	doc := parseHTML(t, `<div class="pv-contact-info__contact-type">
		<a href="https://github.com/x">x</a>
		<a href="https://example.com/portfolio">site</a>
	</div>`)

	out := Socials(doc, DefaultSelectors())
	require.False(t, out.Gap())
	assert.Equal(t, map[string]string{
		"GitHub":  "x",
		"Website": "https://example.com/portfolio",
	}, out.Entries)
}

func TestClassifySocial(t *testing.T) {
	tests := []struct {
		name      string
		href      string
		text      string
		wantLabel string
		wantValue string
		wantOK    bool
	}{
		{"github", "https://github.com/x", "x", "GitHub", "x", true},
		{"twitter upper case", "https://TWITTER.com/x", " @x ", "Twitter", "@x", true},
		{"facebook", "https://facebook.com/x", "x fb", "Facebook", "x fb", true},
		{"instagram", "https://instagram.com/x", "x", "Instagram", "x", true},
		{"website", "https://x.dev/website", "mine", "Website", "https://x.dev/website", true},
		{"portfolio", "https://example.com/portfolio", "site", "Website", "https://example.com/portfolio", true},
		{"first match wins", "https://github.com/twitter", "t", "Twitter", "t", true},
		{"platform beats website", "https://github.io/portfolio", "gh", "GitHub", "gh", true},
		{"unknown", "mailto:x@example.com", "x", "", "", false},
		{"empty", "", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, value, ok := ClassifySocial(tt.href, tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantLabel, label)
			assert.Equal(t, tt.wantValue, value)
		})
	}
}

func TestExperience_RequiresBothParts(t *testing.T) {
	doc := parseHTML(t, `<section id="experience-section"><ul>
		<li class="pv-entity__position-group-pager"><p class="pv-entity__secondary-title">Acme</p></li>
		<li class="pv-entity__position-group-pager"><h3 class="pv-entity__primary-title">Lead</h3></li>
	</ul></section>`)

	out := Experience(doc, DefaultSelectors())
	assert.True(t, out.Gap())
	assert.Empty(t, out.Entries)
}

func TestExperience_DuplicateKeyLastWins(t *testing.T) {
	doc := parseHTML(t, `<section id="experience-section"><ul>
		<li class="pv-entity__position-group-pager">
			<h3 class="pv-entity__primary-title">Engineer</h3><p class="pv-entity__secondary-title">Acme</p>
		</li>
		<li class="pv-entity__position-group-pager">
			<h3 class="pv-entity__primary-title">Senior Engineer</h3><p class="pv-entity__secondary-title">Acme</p>
		</li>
	</ul></section>`)

	out := Experience(doc, DefaultSelectors())
	assert.Equal(t, map[string]string{"Acme": "Senior Engineer"}, out.Entries)
}

func TestEducation_DegreeOptional(t *testing.T) {
	doc := parseHTML(t, `<section id="education-section"><ul>
		<li class="pv-education-entity"><h3 class="pv-entity__school-name">MIT</h3></li>
		<li class="pv-education-entity"><span class="pv-entity__comma-item">Orphan degree</span></li>
	</ul></section>`)

	out := Education(doc, DefaultSelectors())
	assert.Equal(t, map[string]string{"MIT": ""}, out.Entries)
}

func TestCertifications_KeyedByIssuer(t *testing.T) {
	doc := parseHTML(t, `<section id="certifications-section"><ul>
		<li class="pv-certification-entity">
			<h3 class="pv-certification-name">Cloud Practitioner</h3>
			<p class="pv-certification-entity__issuer">AWS</p>
		</li>
		<li class="pv-certification-entity">
			<h3 class="pv-certification-name">Solutions Architect</h3>
			<p class="pv-certification-entity__issuer">AWS</p>
		</li>
		<li class="pv-certification-entity">
			<p class="pv-certification-entity__issuer">Nobody</p>
		</li>
	</ul></section>`)

	out := Certifications(doc, DefaultSelectors())
	assert.Equal(t, map[string]string{"AWS": "Solutions Architect"}, out.Entries)
}

func TestProjects_DescriptionOptional(t *testing.T) {
	doc := parseHTML(t, `<section id="projects-section"><ul>
		<li class="pv-accomplishment-entity"><h3 class="pv-accomplishment-entity__title">Tool</h3></li>
		<li class="pv-accomplishment-entity"><p class="pv-accomplishment-entity__description">untitled</p></li>
	</ul></section>`)

	out := Projects(doc, DefaultSelectors())
	assert.Equal(t, map[string]string{"Tool": ""}, out.Entries)
}

func TestRun_PanicIsolatedToField(t *testing.T) {
	ex := &Extractor{
		sel: DefaultSelectors(),
		funcs: []fieldFunc{
			{types.FieldName, Name},
			{types.FieldExperience, func(dom.Node, Selectors) Outcome { panic("boom") }},
			{types.FieldBio, Bio},
		},
	}

	outcomes := ex.Run(loadFixture(t))
	require.Len(t, outcomes, 3)

	assert.Equal(t, "Jane Doe", outcomes[0].Text)
	assert.Equal(t, "Staff Engineer building data pipelines", outcomes[2].Text)

	crashed := outcomes[1]
	assert.True(t, crashed.Gap())
	var gapErr *GapError
	require.True(t, errors.As(crashed.Err, &gapErr))
	assert.Equal(t, types.FieldExperience, gapErr.Field)
	assert.Contains(t, gapErr.Error(), "panic: boom")

	rec := types.NewProfileRecord("jdoe")
	ApplyTo(&rec, outcomes)
	assert.Equal(t, "Jane Doe", rec.Name)
	assert.Empty(t, rec.Experience)
	assert.NotNil(t, rec.Experience)
}

func TestApplyTo_NormalizesHandBuiltRecord(t *testing.T) {
	rec := types.ProfileRecord{Source: "x"}
	ApplyTo(&rec, []Outcome{{Field: types.FieldProjects, Entries: map[string]string{"P": "d"}}})

	assert.Equal(t, map[string]string{"P": "d"}, rec.Projects)
	assert.NotNil(t, rec.Socials)
}

func TestCustomSelectors(t *testing.T) {
	sel := DefaultSelectors()
	sel.Name = "h1.custom"
	doc := parseHTML(t, `<h1 class="custom">Custom Name</h1>`)

	out := New(sel).Run(doc)
	assert.Equal(t, "Custom Name", out[0].Text)
}

func TestGapError(t *testing.T) {
	err := &GapError{Field: types.FieldBio, Cause: ErrNoData}
	assert.Equal(t, "extraction gap: bio: no data found", err.Error())
	assert.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, "extraction gap: bio", (&GapError{Field: types.FieldBio}).Error())
}
