// Package constants centralizes fixed values shared across the compiler
// passes, so that reserved names, diagnostic code ranges, and default
// bounds are defined exactly once.
package constants

// SourceExtension is the required extension for importable WorkPipe files
// (spec.md §4.1).
const SourceExtension = ".workpipe"

// Cycle-lowering reserved job-name suffixes (spec.md §4.5). A cycle named
// "refine" reserves "refine_hydrate", "refine_decide", "refine_dispatch";
// no user job in the same workflow may use any of these names.
const (
	HydrateSuffix  = "_hydrate"
	DecideSuffix   = "_decide"
	DispatchSuffix = "_dispatch"
)

// ReservedJobSuffixes lists every suffix a cycle lowering reserves, in the
// order the lowerer emits the corresponding jobs.
var ReservedJobSuffixes = []string{HydrateSuffix, DecideSuffix, DispatchSuffix}

// DefaultHardIterationCap is the hard implementation cap applied when a
// cycle specifies only untilGuardJs without maxIters (spec.md §4.5). A
// larger explicit maxIters is also capped at this value.
const DefaultHardIterationCap = 100

// MaxMatrixCombinations is the maximum Cartesian product size allowed for a
// matrix_job's axes (spec.md §4.4).
const MaxMatrixCombinations = 256

// LevenshteinSuggestionDistance is the maximum edit distance considered
// when suggesting a near-miss exportable name for WP7003 (spec.md §4.2).
const LevenshteinSuggestionDistance = 3

// RetryPolicyStop and RetryPolicyContinue are the only legal retry_policy
// values (spec.md §4.5). RetryPolicyStop is also the default applied when
// the field is omitted (SPEC_FULL.md Open Question resolution).
const (
	RetryPolicyStop     = "stop"
	RetryPolicyContinue = "continue"
)

// DefaultRetryPolicy is the cycle retry_policy value used when the field is
// omitted.
const DefaultRetryPolicy = RetryPolicyStop

// Primitive type names recognized by the type system (spec.md §3).
const (
	TypeString = "string"
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeBool   = "bool"
	TypeJSON   = "json"
)
