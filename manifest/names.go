package manifest

import (
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"
)

// reservedPrefixes are the name prefixes of target-implemented callables,
// which have no body to lower.
var reservedPrefixes = []string{
	"__quantum__qis__",
	"__quantum__rt__",
}

// IsReservedName reports whether name belongs to the target's intrinsic
// namespace.
func IsReservedName(name string) bool {
	for _, p := range reservedPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// ValidateEntryName checks that name can name an entry callable: an
// identifier outside the intrinsic namespace.
func ValidateEntryName(name string) error {
	if name == "" {
		return errors.New("entry callable name is empty")
	}
	for i, r := range name {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return errors.Newf("entry callable %q is not an identifier", name)
	}
	if IsReservedName(name) {
		return errors.Newf("entry callable %q is a target intrinsic", name)
	}
	return nil
}
