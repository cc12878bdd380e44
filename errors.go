package strand

import "github.com/pkg/errors"

// ErrInvalidConfig is returned by NewPool when the configuration fails
// validation. The returned error wraps this sentinel with the offending
// field, so both forms work:
//
//	if errors.Is(err, strand.ErrInvalidConfig) { ... }
//	if errors.Cause(err) == strand.ErrInvalidConfig { ... } // github.com/pkg/errors
var ErrInvalidConfig = errors.New("strand: invalid configuration")
