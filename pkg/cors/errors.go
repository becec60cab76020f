package cors

import "errors"

var ErrNilRegistry = errors.New("cors: registry is nil")
