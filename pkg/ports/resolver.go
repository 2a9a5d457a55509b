package ports

// Resolver maps an identifier to a freshly constructed Process.
//
// Implementations return *domain.UnknownProcessError when the identifier is not
// registered and *domain.ProcessConstructionError when construction fails.
// Instances must not be cached: stack steps hold run-scoped state.
type Resolver interface {
	Resolve(id string, args map[string]any) (Process, error)
}
