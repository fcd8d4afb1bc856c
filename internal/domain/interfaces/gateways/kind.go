package gateways

// FileKind classifies an input file by its magic bytes.
type FileKind int

const (
	KindOther FileKind = iota
	KindContainer
	KindExecutable
)

// String returns the kind name.
func (k FileKind) String() string {
	switch k {
	case KindContainer:
		return "container"
	case KindExecutable:
		return "executable"
	default:
		return "other"
	}
}
