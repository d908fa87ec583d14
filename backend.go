package pipequery

// Backend represents a supported query backend.
// This type is shared across all packages
type Backend string

const (
	BackendMongo36 Backend = "mongo36"
	BackendMongo40 Backend = "mongo40"
	BackendMongo42 Backend = "mongo42"
	BackendMongo50 Backend = "mongo50"
)

// DefaultBackend is used when no backend is configured.
const DefaultBackend = BackendMongo50

// Feature represents backend-specific feature flags
type Feature int

const (
	FeatureConvert    Feature = iota + 1 // $convert, $toDate
	FeatureTrim                          // $trim
	FeatureRegexMatch                    // $regexMatch
	FeatureDateFormat                    // format option of $dateFromString
)

// Supports reports whether the backend provides the feature.
// Unknown backends support nothing beyond the baseline operators.
func (b Backend) Supports(f Feature) bool {
	return Capabilities[b][f]
}

// Valid reports whether b is a known backend.
func (b Backend) Valid() bool {
	_, ok := Capabilities[b]
	return ok
}
