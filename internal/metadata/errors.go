package metadata

import (
	"fmt"
	"strings"

	"github.com/cyverse/ckan-migrator/internal/models"
)

// FieldError reports that none of a field's candidate keys were present.
type FieldError struct {
	Field string
	Keys  []string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s not found (tried %s)", e.Field, strings.Join(e.Keys, ", "))
}

func (e *FieldError) Unwrap() error {
	return models.ErrFieldMissing
}

// RequiredFieldError reports that a key every dataset must carry is absent.
type RequiredFieldError struct {
	Key string
}

func (e *RequiredFieldError) Error() string {
	return fmt.Sprintf("required field %q is missing", e.Key)
}

func (e *RequiredFieldError) Unwrap() error {
	return models.ErrMissingRequiredField
}
