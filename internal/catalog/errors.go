package catalog

import (
	"fmt"

	"github.com/cyverse/ckan-migrator/internal/models"
)

// RemoteWriteError is a CKAN action that answered success=false. Message is
// the catalog's own explanation and is shown to users unchanged.
type RemoteWriteError struct {
	Action     string
	StatusCode int
	Type       string
	Message    string
}

func (e *RemoteWriteError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s failed: %s: %s", e.Action, e.Type, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Action, e.Message)
}

func (e *RemoteWriteError) Unwrap() error {
	return models.ErrRemoteWrite
}
