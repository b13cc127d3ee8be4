package media

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidEntityID marks an entity id not of the form Q<digits>.
var ErrInvalidEntityID = errors.New("invalid entity id")

var entityIDPattern = regexp.MustCompile(`^Q\d+$`)

// ValidateEntityID rejects ids that must never be interpolated into a query.
func ValidateEntityID(id string) error {
	if !entityIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidEntityID, id)
	}
	return nil
}
