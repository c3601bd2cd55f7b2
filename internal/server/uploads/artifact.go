package uploads

import "sync"

// Artifact is a file held in the staging directory. Its local copy is removed
// exactly once, either by Manager.Commit or by Manager.Discard.
type Artifact struct {
	path string
	name string

	once sync.Once
}

// Path is the location of the staged copy.
func (a *Artifact) Path() string { return a.path }

// Name is the filename the client sent.
func (a *Artifact) Name() string { return a.name }
