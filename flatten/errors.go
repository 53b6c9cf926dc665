package flatten

import "fmt"

// Stage identifies the pipeline stage a fatal import error came from.
type Stage int

const (
	StageTraversal Stage = iota
	StageTransform
	StageSkin
	StageMaterial
	StageMeshEncode
)

func (s Stage) String() string {
	switch s {
	case StageTraversal:
		return "traversal"
	case StageTransform:
		return "transform"
	case StageSkin:
		return "skin"
	case StageMaterial:
		return "material"
	case StageMeshEncode:
		return "mesh-encode"
	}
	return "unknown"
}

// StageError is a fatal import failure. Recoverable conditions (missing
// textures, unresolved joints, 8-bit indices) never produce one; they are
// handled in place with a default and a logged diagnostic.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("import failed at %v stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(s Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: s, Err: err}
}
