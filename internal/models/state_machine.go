package models

import (
	"fmt"
	"strconv"
)

// ValidStageTransitions defines the production flow.
// Flow: PENDING → ASSIGNED → PRINTING → BINDING → QUALITY_CHECK → SHIPPED → DELIVERED
// CANCELLED can be reached from any non-terminal stage
var ValidStageTransitions = map[Stage][]Stage{
	StagePending:      {StageAssigned, StageCancelled},
	StageAssigned:     {StagePrinting, StageCancelled},
	StagePrinting:     {StageBinding, StageCancelled},
	StageBinding:      {StageQualityCheck, StageCancelled},
	StageQualityCheck: {StageShipped, StagePrinting, StageCancelled}, // Reprint on failed QC
	StageShipped:      {StageDelivered, StageCancelled},
	StageDelivered:    {}, // Terminal state
	StageCancelled:    {}, // Terminal state
}

// VendorStages are the stages a vendor may move their own jobs into.
var VendorStages = []Stage{StagePrinting, StageBinding, StageQualityCheck, StageShipped}

// IsValid reports whether s is a known stage.
func (s Stage) IsValid() bool {
	_, ok := ValidStageTransitions[s]
	return ok
}

// IsVendorStage reports whether vendors may set this stage.
func (s Stage) IsVendorStage() bool {
	for _, v := range VendorStages {
		if v == s {
			return true
		}
	}
	return false
}

// CanTransitionStage checks if a transition from one stage to another is valid
func CanTransitionStage(from, to Stage) bool {
	validTransitions, exists := ValidStageTransitions[from]
	if !exists {
		return false
	}
	for _, validTo := range validTransitions {
		if validTo == to {
			return true
		}
	}
	return false
}

// ValidateStageTransition returns an error if the transition is invalid
func ValidateStageTransition(from, to Stage) error {
	if !CanTransitionStage(from, to) {
		return fmt.Errorf("invalid stage transition from %s to %s", from, to)
	}
	return nil
}

// GetNextValidStages returns the list of valid next stages for an order
func GetNextValidStages(current Stage) []Stage {
	return ValidStageTransitions[current]
}

// IsTerminalStage checks if the stage is a terminal state
func IsTerminalStage(stage Stage) bool {
	return len(ValidStageTransitions[stage]) == 0
}

// DisplayName returns a human-readable name for the stage
func (s Stage) DisplayName() string {
	switch s {
	case StagePending:
		return "Pending"
	case StageAssigned:
		return "Assigned to Vendor"
	case StagePrinting:
		return "Printing"
	case StageBinding:
		return "Binding"
	case StageQualityCheck:
		return "Quality Check"
	case StageShipped:
		return "Shipped"
	case StageDelivered:
		return "Delivered"
	case StageCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
