package models

import "github.com/google/uuid"

// ensureID assigns a fresh UUID when the record has none yet.
func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
