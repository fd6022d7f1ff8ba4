package config

// Registry resolves project ids to repository paths from the loaded
// configuration's project map.
type Registry struct {
	projects map[string]string
}

// NewRegistry builds a registry from a project map.
func NewRegistry(projects map[string]string) *Registry {
	return &Registry{projects: projects}
}

// RepoPath returns the configured repository path for a project.
func (r *Registry) RepoPath(projectID string) (string, bool) {
	path, ok := r.projects[projectID]
	return path, ok
}

// ProjectIDs lists every configured project.
func (r *Registry) ProjectIDs() []string {
	ids := make([]string, 0, len(r.projects))
	for id := range r.projects {
		ids = append(ids, id)
	}
	return ids
}
