package credentials

import (
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// parseAccountID parses the identity id carried in token subjects back into
// the account's UUID.
func parseAccountID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, errors.CategoryBadInput, "identity id is not a valid account id").
			WithMetadata(map[string]any{"id": id})
	}
	return parsed, nil
}

// HasAccountID reports whether the identity carries a parseable account id.
func HasAccountID(identity Identity) bool {
	if identity == nil {
		return false
	}
	_, err := parseAccountID(identity.ID())
	return err == nil
}
