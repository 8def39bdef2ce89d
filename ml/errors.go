package ml

import "fmt"

// ArtifactLoadError is returned when an artifact file is missing, unreadable
// or not in the expected format. Nothing can be served after it.
type ArtifactLoadError struct {
	Artifact string
	Path     string
	Err      error
}

func (e *ArtifactLoadError) Error() string {
	return fmt.Sprintf("load %s artifact %s: %v", e.Artifact, e.Path, e.Err)
}

func (e *ArtifactLoadError) Unwrap() error {
	return e.Err
}
