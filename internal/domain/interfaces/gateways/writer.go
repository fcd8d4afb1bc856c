package gateways

// FileWriter lands output bytes at their destination path. Implementations
// must guarantee that no partial file is ever visible at the final path:
// either the write completes or the previous state (including a restored
// backup) remains.
type FileWriter interface {
	// Write places data at path. When backup is set and path pre-exists,
	// the original is preserved before any write and restored if the final
	// rename fails.
	Write(path string, data []byte, backup bool) error
}
