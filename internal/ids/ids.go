package ids

import "github.com/segmentio/ksuid"

// New returns a K-sortable unique identifier. Entity ids and object keys all
// come from here so creation order is recoverable from the id itself.
func New() string {
	return ksuid.New().String()
}
