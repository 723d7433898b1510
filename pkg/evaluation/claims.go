package evaluation

import (
	"context"

	"github.com/codeGROOVE-dev/orbit/pkg/technique"
)

// ClaimReport is what a claim checker found in a candidate.
type ClaimReport struct {
	Verified        []string `json:"verified_claims"`
	Questionable    []string `json:"questionable_claims"`
	OverallAccuracy float64  `json:"overall_accuracy"`
	Confidence      float64  `json:"confidence"`
}

// ClaimChecker verifies the factual claims made by a candidate.
type ClaimChecker interface {
	CheckClaims(ctx context.Context, c technique.Candidate) (ClaimReport, error)
}

const (
	// FactorClaimCheckUnavailable is added when the claim checker fails.
	FactorClaimCheckUnavailable = "claim_check_unavailable"
	unavailableAccuracy         = 0.8
)

// StaticClaimChecker reports a fixed accuracy. It stands in when no
// verification service is wired.
type StaticClaimChecker struct {
	Accuracy float64
}

// CheckClaims returns the fixed report.
func (s StaticClaimChecker) CheckClaims(context.Context, technique.Candidate) (ClaimReport, error) {
	return ClaimReport{OverallAccuracy: s.Accuracy, Confidence: 0.7}, nil
}

// CitationClaimChecker treats claims as verified when the technique carries
// research citations.
type CitationClaimChecker struct{}

// CheckClaims returns 0.9 for cited techniques and 0.7 otherwise.
func (CitationClaimChecker) CheckClaims(_ context.Context, c technique.Candidate) (ClaimReport, error) {
	if len(c.Metadata.Citations) == 0 {
		return ClaimReport{OverallAccuracy: 0.7, Confidence: 0.5, Questionable: []string{c.Technique.String()}}, nil
	}
	return ClaimReport{OverallAccuracy: 0.9, Confidence: 0.7, Verified: c.Metadata.Citations}, nil
}
