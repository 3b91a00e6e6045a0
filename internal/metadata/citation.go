package metadata

import (
	"fmt"
	"strings"
)

// DefaultCatalogName is the repository name printed in citations.
const DefaultCatalogName = "CyVerse Data Commons"

// Identifier returns the DOI/ARK identifier. When the attribute is repeated,
// the non-empty values are joined with ", ".
func Identifier(m *Metadata) (string, error) {
	v, err := field(m, "identifier", identifierKeys)
	if err != nil {
		return "", err
	}
	var ids []string
	for _, id := range v.Items() {
		if strings.TrimSpace(id) != "" {
			ids = append(ids, id)
		}
	}
	return strings.Join(ids, ", "), nil
}

// Citation formats "{author} {year}. {title}. {catalog}. DOI {identifier}".
func Citation(m *Metadata, catalogName string) (string, error) {
	if catalogName == "" {
		catalogName = DefaultCatalogName
	}
	author, err := Author(m)
	if err != nil {
		return "", err
	}
	year, err := PublicationYear(m)
	if err != nil {
		return "", err
	}
	title, err := Title(m)
	if err != nil {
		return "", err
	}
	identifier, err := Identifier(m)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s. %s. %s. DOI %s", author, year, title, catalogName, identifier), nil
}
