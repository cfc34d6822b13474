package decision

import "strings"

// classEntry pairs a failure class with the category terms that select it.
// Entries are checked in order; the first match wins, and an unmatched
// category falls through to stakeholder friction (the most common failure
// mode in this operation).
type classEntry struct {
	class FailureClass
	terms []string
}

var classTable = []classEntry{
	{ClassDataIntegrity, []string{"udl", "ledger", "data integrity", "data corruption", "data loss", "checksum"}},
	{ClassPipelineBlockage, []string{"pipeline", "tier", "ladder", "blockage", "blocked", "bottleneck", "stuck", "queue"}},
	{ClassStakeholderFriction, []string{"friction", "complaint", "stakeholder", "trust", "churn", "objection", "refund"}},
	{ClassExternalDisruption, []string{"market", "competitor", "external", "regulation", "economy", "platform change"}},
	{ClassInternalDrift, []string{"drift", "deviation", "misalign", "off-script", "agent behavior", "prompt decay"}},
}

// classMetadata is the static urgency/correction/symptom table per class.
var classMetadata = map[FailureClass]FailureClassification{
	ClassDataIntegrity: {
		Class:          ClassDataIntegrity,
		Urgency:        UrgencyCritical,
		CorrectionType: CorrectionLedgerRestoration,
		Symptoms:       []string{"stale or contradictory ledger entries", "metrics disagree across surfaces", "failed reconciliation"},
		Meaning:        "the numbers the whole operation steers by can no longer be trusted",
	},
	ClassPipelineBlockage: {
		Class:          ClassPipelineBlockage,
		Urgency:        UrgencyMedium,
		CorrectionType: CorrectionPipelineUnclogging,
		Symptoms:       []string{"work accumulating at one tier", "downstream stages starved", "aging queue items"},
		Meaning:        "flow through the offer ladder has stalled at a specific stage",
	},
	ClassStakeholderFriction: {
		Class:          ClassStakeholderFriction,
		Urgency:        UrgencyHigh,
		CorrectionType: CorrectionTrustRepair,
		Symptoms:       []string{"rising complaints or objections", "slipping response sentiment", "refund requests"},
		Meaning:        "people the operation depends on are losing confidence in it",
	},
	ClassExternalDisruption: {
		Class:          ClassExternalDisruption,
		Urgency:        UrgencyLow,
		CorrectionType: CorrectionMarketAdaptation,
		Symptoms:       []string{"sudden channel performance shift", "competitor movement", "platform policy change"},
		Meaning:        "the environment moved; the playbook needs adapting, not fixing",
	},
	ClassInternalDrift: {
		Class:          ClassInternalDrift,
		Urgency:        UrgencyHigh,
		CorrectionType: CorrectionAgentRealignment,
		Symptoms:       []string{"agent output diverging from its charter", "repeated off-script actions", "quality regression without input change"},
		Meaning:        "an autonomous worker has wandered from its mandate",
	},
}

// Classify maps a root cause to its failure class by ordered category
// matching. Pure and stateless; safe to call concurrently.
func Classify(rc RootCause) FailureClassification {
	category := strings.ToLower(rc.Category)
	for _, entry := range classTable {
		for _, term := range entry.terms {
			if strings.Contains(category, term) {
				return classMetadata[entry.class]
			}
		}
	}
	return classMetadata[ClassStakeholderFriction]
}
