package metadata

import "strings"

// License identifiers understood by the catalog.
const (
	LicenseODCPDDL      = "odc-pddl"
	LicenseCCZero       = "cc-zero"
	LicenseNotSpecified = "notspecified"
)

// License is the catalog license triple.
type License struct {
	ID    string `json:"license_id"`
	Title string `json:"license_title"`
	URL   string `json:"license_url,omitempty"`
}

var (
	odcPDDL = License{
		ID:    LicenseODCPDDL,
		Title: "Open Data Commons Public Domain Dedication and License (PDDL)",
		URL:   "http://www.opendefinition.org/licenses/odc-pddl",
	}
	ccZero = License{
		ID:    LicenseCCZero,
		Title: "Creative Commons CCZero",
		URL:   "http://www.opendefinition.org/licenses/cc-zero",
	}
	notSpecified = License{
		ID:    LicenseNotSpecified,
		Title: "License not specified",
	}
)

var rightsKeys = []string{"rights", "Rights"}

// ClassifyLicense maps a free-text rights statement to a license. Matching
// is case-sensitive and ODC PDDL takes priority over CC0.
func ClassifyLicense(rights string) License {
	switch {
	case strings.Contains(rights, "ODC PDDL"):
		return odcPDDL
	case strings.Contains(rights, "CC0"):
		return ccZero
	default:
		return notSpecified
	}
}

// LicenseFor classifies the dataset's rights statement.
func LicenseFor(m *Metadata) License {
	v, _, ok := m.lookup(rightsKeys)
	if !ok {
		return notSpecified
	}
	return ClassifyLicense(v.String())
}
