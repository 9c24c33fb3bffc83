package extract

// Profile page selectors.
// These WILL break when the markup changes. Inspect a rendered profile in
// Chrome DevTools to verify or update them, or override them in Selectors.

const (
	SelectorName = `.pv-top-card .text-heading-xlarge`
	SelectorBio  = `.pv-top-card .text-body-medium`

	// Anchors inside the contact-info overlay.
	SelectorSocialLinks = `.pv-contact-info__contact-type a`

	SelectorExperienceItem = `#experience-section li.pv-entity__position-group-pager`
	SelectorExperienceOrg  = `.pv-entity__secondary-title`
	SelectorExperienceRole = `.pv-entity__primary-title`

	SelectorEducationItem   = `#education-section li.pv-education-entity`
	SelectorEducationSchool = `.pv-entity__school-name`
	SelectorEducationDegree = `.pv-entity__degree-name .pv-entity__comma-item`

	SelectorCertificationItem   = `#certifications-section li.pv-certification-entity`
	SelectorCertificationName   = `.pv-certification-name`
	SelectorCertificationIssuer = `.pv-certification-entity__issuer`

	SelectorProjectItem        = `#projects-section li.pv-accomplishment-entity`
	SelectorProjectTitle       = `.pv-accomplishment-entity__title`
	SelectorProjectDescription = `.pv-accomplishment-entity__description`
)

// Selectors holds every CSS selector the extractors use.
type Selectors struct {
	Name string
	Bio  string

	SocialLinks string

	ExperienceItem string
	ExperienceOrg  string
	ExperienceRole string

	EducationItem   string
	EducationSchool string
	EducationDegree string

	CertificationItem   string
	CertificationName   string
	CertificationIssuer string

	ProjectItem        string
	ProjectTitle       string
	ProjectDescription string
}

// DefaultSelectors returns the selectors for the current profile layout.
func DefaultSelectors() Selectors {
	return Selectors{
		Name:                SelectorName,
		Bio:                 SelectorBio,
		SocialLinks:         SelectorSocialLinks,
		ExperienceItem:      SelectorExperienceItem,
		ExperienceOrg:       SelectorExperienceOrg,
		ExperienceRole:      SelectorExperienceRole,
		EducationItem:       SelectorEducationItem,
		EducationSchool:     SelectorEducationSchool,
		EducationDegree:     SelectorEducationDegree,
		CertificationItem:   SelectorCertificationItem,
		CertificationName:   SelectorCertificationName,
		CertificationIssuer: SelectorCertificationIssuer,
		ProjectItem:         SelectorProjectItem,
		ProjectTitle:        SelectorProjectTitle,
		ProjectDescription:  SelectorProjectDescription,
	}
}
