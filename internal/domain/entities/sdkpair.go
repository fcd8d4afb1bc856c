package entities

// SdkVersionPair is one downgrade target: a matched platform SDK version and
// executable (older firmware) version, both fixed-point encodings.
type SdkVersionPair struct {
	ID                int
	PlatformVersion   uint32
	ExecutableVersion uint32
}

// DefaultSdkPair is the pair selected when the caller does not choose one.
const DefaultSdkPair = 4
