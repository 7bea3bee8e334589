package validation

import (
	"encoding/json"
	"fmt"
)

// MaxMetadataPatchBytes bounds the size of a metadata merge patch
const MaxMetadataPatchBytes = 64 * 1024

// protectedFields are entity attributes that may never be changed through
// a metadata patch; they have dedicated endpoints or are immutable.
var protectedFields = map[string]bool{
	"id":         true,
	"kind":       true,
	"author_id":  true,
	"created_at": true,
	"visibility": true,
}

// ValidateMetadataPatch checks an RFC 7386 merge patch document before it is
// applied to an entity's metadata.
func ValidateMetadataPatch(patch []byte) error {
	if len(patch) == 0 {
		return fmt.Errorf("empty patch document")
	}

	if len(patch) > MaxMetadataPatchBytes {
		return fmt.Errorf("patch document too large: %d bytes (max %d)", len(patch), MaxMetadataPatchBytes)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(patch, &doc); err != nil {
		return fmt.Errorf("patch document must be a JSON object: %w", err)
	}

	if len(doc) == 0 {
		return fmt.Errorf("patch document changes nothing")
	}

	for field := range doc {
		if protectedFields[field] {
			return fmt.Errorf("field %q cannot be changed via metadata patch", field)
		}
	}

	return nil
}
