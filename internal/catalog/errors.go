package catalog

import "errors"

// ErrItemNotFound is returned when a product id does not resolve to an
// active catalog item. Callers decide whether this is a validation failure
// (adding an unknown product) or data drift (summarizing a cart that
// references a retired product).
var ErrItemNotFound = errors.New("catalog item not found")
