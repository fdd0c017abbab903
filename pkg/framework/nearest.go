package framework

// GetNearest returns the item whose framework is the most specific match for target among
// the compatible ones. It reports false when no item is compatible.
func GetNearest[T any](items []T, target Framework, selector func(T) Framework) (T, bool) {
	var (
		best  T
		bestF Framework
		found bool
	)
	for _, item := range items {
		f := selector(item)
		if !IsCompatible(target, f) {
			continue
		}
		if !found || nearer(target, f, bestF) {
			best, bestF, found = item, f, true
		}
	}
	return best, found
}

// nearer reports whether a is a closer match for target than b.
func nearer(target, a, b Framework) bool {
	aOverB := IsCompatible(a, b)
	bOverA := IsCompatible(b, a)
	switch {
	case aOverB && !bOverA:
		return true
	case bOverA && !aOverB:
		return false
	}

	// Unrelated frameworks: prefer the target's own family, then the higher version.
	aSame := a.Identifier == target.Identifier
	bSame := b.Identifier == target.Identifier
	if aSame != bSame {
		return aSame
	}
	if a.Identifier == b.Identifier {
		return a.Version.GreaterThan(b.Version)
	}
	return a.String() < b.String()
}
