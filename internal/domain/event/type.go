package event

// Type identifies the type of domain event
type Type string

const (
	// Row -> grid notifications
	TypeAttributeModified Type = "attribute.modified"
	TypeReadyToComplete   Type = "assessment.ready_to_complete"

	// Session -> subscribers notifications about bulk operations
	TypeBulkEnqueued  Type = "bulk.enqueued"
	TypeBulkRejected  Type = "bulk.rejected"
	TypeBulkSucceeded Type = "bulk.succeeded"
	TypeBulkFailed    Type = "bulk.failed"
)

// BulkTypes returns every bulk operation event type
func BulkTypes() []Type {
	return []Type{TypeBulkEnqueued, TypeBulkRejected, TypeBulkSucceeded, TypeBulkFailed}
}

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeAttributeModified,
		TypeReadyToComplete,
		TypeBulkEnqueued,
		TypeBulkRejected,
		TypeBulkSucceeded,
		TypeBulkFailed:
		return true
	default:
		return false
	}
}

// IsBulk reports whether the event describes a bulk operation
func (t Type) IsBulk() bool {
	switch t {
	case TypeBulkEnqueued, TypeBulkRejected, TypeBulkSucceeded, TypeBulkFailed:
		return true
	default:
		return false
	}
}
