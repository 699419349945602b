package service

import (
	"fmt"

	"github.com/garyjia/assessment-bulk/internal/domain/entity"
)

// User facing texts
const (
	MsgSaveFinished     = "Saving certifications in bulk is finished"
	MsgCompleteFinished = "Completing certifications in bulk is finished"

	MsgSaveFailed     = "Failed to save answers. Please try again."
	MsgCompleteFailed = "Failed to complete certifications. Please try again."
	MsgLoadFailed     = "Failed to load certifications. Please try again."
	MsgUploadFailed   = "Failed to upload files. Please try again."

	MsgDiscardChanges = "You have unsaved changes. Discard them and continue?"
)

// completeConfirmation is the question asked before completing n rows
func completeConfirmation(n int) string {
	if n == 1 {
		return "Complete 1 certification? Completed certifications are removed from the grid."
	}
	return fmt.Sprintf("Complete %d certifications? Completed certifications are removed from the grid.", n)
}

func finishedMessage(kind string) string {
	if kind == entity.OperationComplete {
		return MsgCompleteFinished
	}
	return MsgSaveFinished
}

func failedMessage(kind string) string {
	if kind == entity.OperationComplete {
		return MsgCompleteFailed
	}
	return MsgSaveFailed
}
