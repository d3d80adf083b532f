package driver

// SetGroupLimit replaces the spawn limit of every group until restore is
// called. Tests using it must not run in parallel.
func SetGroupLimit(f func(g Group, n int) int) (restore func()) {
	old := groupLimit
	groupLimit = f
	return func() { groupLimit = old }
}
