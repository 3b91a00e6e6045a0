package models

// Dataset is a dataset folder as listed by the Discovery Environment.
type Dataset struct {
	ID           string `json:"id"`
	Path         string `json:"path"`
	Label        string `json:"label"`
	DateCreated  string `json:"date_created"`  // "2006-01-02 15:04:05", local time
	DateModified string `json:"date_modified"` // "2006-01-02 15:04:05", local time
}

// File is a file or folder inside a dataset.
type File struct {
	ID           string `json:"id"`
	Path         string `json:"path"`
	Name         string `json:"name"`
	Type         string `json:"type"` // extension without the dot, "" when there is none
	URL          string `json:"url"`  // WebDAV download location
	DateCreated  string `json:"date_created"`
	DateModified string `json:"date_modified"`
}

// Listing is one page of a directory listing.
type Listing struct {
	Total   int    `json:"total"`
	Files   []File `json:"files"`
	Folders []File `json:"folders"`
}

// FolderFormat is the resource format recorded for sub-folders.
const FolderFormat = "folder"

// Resource is a catalog resource pointing at a source file.
type Resource struct {
	PackageID    string  `json:"package_id"`
	Name         string  `json:"name"`
	Description  *string `json:"description"`
	URL          string  `json:"url"`
	Format       string  `json:"format"`
	DateCreated  string  `json:"Date created in discovery environment,omitempty"`
	DateModified string  `json:"Date last modified in discovery environment,omitempty"`
}

// Extra is a free-form key/value pair attached to a catalog record.
type Extra struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// RemoteResource is the catalog's view of a resource.
type RemoteResource struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// RemoteRecord is the catalog's view of a previously migrated dataset.
// It is read-only input to the reconciliation.
type RemoteRecord struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Title     string           `json:"title"`
	Notes     string           `json:"notes"`
	Extras    []Extra          `json:"extras"`
	Resources []RemoteResource `json:"resources"`
}

// Extra returns the value of the first extra with the given key.
func (r *RemoteRecord) Extra(key string) (string, bool) {
	for _, e := range r.Extras {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// Filter restricts a catalog listing to an organization or a group.
// Group takes precedence when both are set.
type Filter struct {
	Organization string
	Group        string
}
