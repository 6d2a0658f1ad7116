package entities

import (
	"fmt"
	"time"
)

// CorrectionStatus is the lifecycle state of a hallucination claim.
type CorrectionStatus string

const (
	CorrectionOpen      CorrectionStatus = "open"
	CorrectionVerifying CorrectionStatus = "verifying"
	CorrectionFixed     CorrectionStatus = "fixed"
	CorrectionRecurring CorrectionStatus = "recurring"
)

var correctionTransitions = map[CorrectionStatus][]CorrectionStatus{
	CorrectionOpen:      {CorrectionVerifying},
	CorrectionVerifying: {CorrectionFixed, CorrectionRecurring},
}

// IsValid checks if the status is one of the defined constants.
func (s CorrectionStatus) IsValid() bool {
	switch s {
	case CorrectionOpen, CorrectionVerifying, CorrectionFixed, CorrectionRecurring:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s CorrectionStatus) IsTerminal() bool {
	return s == CorrectionFixed || s == CorrectionRecurring
}

// CanTransition reports whether moving from s to next is legal.
func (s CorrectionStatus) CanTransition(next CorrectionStatus) bool {
	for _, allowed := range correctionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition returns next if the move is legal.
func (s CorrectionStatus) Transition(next CorrectionStatus) (CorrectionStatus, error) {
	if !s.CanTransition(next) {
		return s, fmt.Errorf("illegal correction transition %s -> %s", s, next)
	}
	return next, nil
}

// HallucinationClaim is a previously detected false statement. Only the
// correction fields are changed here; the rest belongs to the owning system.
type HallucinationClaim struct {
	ID                string           `json:"id" db:"id"`
	QueryText         string           `json:"query_text" db:"query_text"`
	Engine            EngineID         `json:"engine" db:"engine"`
	ClaimText         string           `json:"claim_text" db:"claim_text"`
	ExpectedTruth     string           `json:"expected_truth,omitempty" db:"expected_truth"`
	CorrectionStatus  CorrectionStatus `json:"correction_status" db:"correction_status"`
	VerifyingSince    *time.Time       `json:"verifying_since,omitempty" db:"verifying_since"`
	FollowUpCheckedAt *time.Time       `json:"follow_up_checked_at,omitempty" db:"follow_up_checked_at"`
	ResolvedAt        *time.Time       `json:"resolved_at,omitempty" db:"resolved_at"`
}

// CheckOutcome is the result class of a correction check.
type CheckOutcome string

const (
	OutcomeCoolingDown        CheckOutcome = "cooling_down"
	OutcomeStillHallucinating CheckOutcome = "still_hallucinating"
	OutcomeFixed              CheckOutcome = "fixed"
)

// CorrectionCheck is what a single re-probe concluded about a claim.
type CorrectionCheck struct {
	ClaimID            string       `json:"claim_id"`
	Outcome            CheckOutcome `json:"outcome"`
	StillHallucinating bool         `json:"still_hallucinating"`
	ResponseText       string       `json:"response_text,omitempty"`
	CheckedAt          time.Time    `json:"checked_at"`
	EligibleAt         *time.Time   `json:"eligible_at,omitempty"`
}
