package rules

// Check codes are stable identifiers carried by every finding.
// They MUST NOT change between releases.
const (
	// --- Structure ---
	CodeSchema     = "SCHEMA"
	CodeIDDistinct = "ID_DISTINCT"

	// --- Time ---
	CodeTimeOrder = "TIME_ORDER"
	CodeLeadTime  = "LEAD_TIME"

	// --- State plausibility ---
	CodeFrameMatch = "FRAME_MATCH"
	CodePosNorm    = "POS_NORM"
	CodeSpeedNorm  = "SPEED_NORM"

	// --- Internal consistency ---
	CodeMissDistanceConsistency = "MISS_DISTANCE_CONSISTENCY"
	CodeRelSpeedConsistency     = "REL_SPEED_CONSISTENCY"

	// --- Covariance ---
	CodeCovSymmetry = "COV_SYMMETRY"
	CodeCovPSD      = "COV_PSD"
	CodeCovStd      = "COV_STD"

	// --- Operator-defined ---
	CodeCustomRules = "CUSTOM_RULES" // registry key of the custom rule check
)

// BuiltinCodes returns the codes owned by built-in checks, in execution order.
func BuiltinCodes() []string {
	return []string{
		CodeSchema,
		CodeIDDistinct,
		CodeTimeOrder,
		CodeLeadTime,
		CodeFrameMatch,
		CodePosNorm,
		CodeSpeedNorm,
		CodeMissDistanceConsistency,
		CodeRelSpeedConsistency,
		CodeCovSymmetry,
		CodeCovPSD,
		CodeCovStd,
	}
}

// IsReservedCode reports whether code is owned by a built-in check and so
// cannot name a custom rule.
func IsReservedCode(code string) bool {
	if code == CodeCustomRules {
		return true
	}
	for _, c := range BuiltinCodes() {
		if c == code {
			return true
		}
	}
	return false
}
