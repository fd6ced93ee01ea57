package synthetics

import "github.com/paulb-elastic/synthetics/id"

// ID is the primary identifier type for all synthetics entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
