package academic

import "github.com/google/uuid"

// newID is assigned before any blob upload so attachment keys can embed
// the record's id.
func newID() string { return uuid.New().String() }
