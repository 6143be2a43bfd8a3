package diag

// Diagnostic codes are partitioned by subsystem so a reader can tell at a
// glance which pass raised a given problem without reading the message.
const (
	// WP0xxx: parse-tree shape problems surfaced after a clean lex.
	CodeUnexpectedTopLevel = "WP0001"
	CodeMalformedLiteral   = "WP0002"

	// WP1xxx: lexical errors (reported directly from pkg/cst, forwarded
	// here with matching codes so the renderer has one vocabulary).
	CodeUnterminatedString  = "WP1001"
	CodeUnterminatedComment = "WP1002"
	CodeUnexpectedChar      = "WP1003"

	// WP5xxx: type system.
	CodeDuplicateTypeName   = "WP5001"
	CodeUnknownTypeRef      = "WP5002"
	CodePropertyAccessError = "WP5003"
	CodeMatrixAxisTypeError = "WP5004"

	// WP6xxx: cycle lowering.
	CodeReservedJobSuffix    = "WP6001"
	CodeCycleMissingGuard    = "WP6002"
	CodeCycleBadRetryPolicy  = "WP6003"
	CodeCycleNameCollision   = "WP6004"
	CodeCycleUnreachableJob  = "WP6005"

	// WP7xxx: imports and cross-file/structural validation.
	CodeUnknownRunner       = "WP7001"
	CodeMissingRunsOn       = "WP7002"
	CodeImportNameNotFound  = "WP7003"
	CodeImportCollision     = "WP7004"
	CodeDuplicateImportItem = "WP7005"
	CodeCircularImport      = "WP7006"
	CodeUnknownNeeds        = "WP7007"
	CodeMatrixTooLarge      = "WP7008"
	CodeMissingAgentField   = "WP7009"
	CodeUnknownFragmentRef  = "WP7010"
	CodeUnknownFragmentArg  = "WP7011"
	CodeMissingFragmentArg  = "WP7012"
	CodeFragmentArgTypeMismatch = "WP7013"

	// WP9xxx: internal errors, synthesized from a recovered panic so a
	// compiler bug never crashes the CLI outright.
	CodeInternal = "WP9001"
)
