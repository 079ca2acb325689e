package assets

import (
	"errors"
	"time"
)

const (
	StatusAvailable   = "available"
	StatusAllocated   = "allocated"
	StatusMaintenance = "maintenance"
	StatusRetired     = "retired"
)

const (
	ConditionGood    = "good"
	ConditionDamaged = "damaged"
	ConditionLost    = "lost"
)

var (
	ErrNotFound        = errors.New("asset not found")
	ErrDuplicateTag    = errors.New("asset tag already exists")
	ErrNotAvailable    = errors.New("asset is not available for allocation")
	ErrNotAllocated    = errors.New("asset is not allocated")
	ErrRetired         = errors.New("retired assets cannot change status")
	ErrReturnFirst     = errors.New("allocated assets must be returned before changing status")
	ErrInvalidStatus   = errors.New("invalid asset status")
	ErrInvalidEmployee = errors.New("employee does not exist or is terminated")
	ErrInvalidField    = errors.New("name and category are required")
)

type Asset struct {
	ID           int64      `json:"id"`
	Tag          string     `json:"tag"`
	Name         string     `json:"name"`
	Category     string     `json:"category"`
	SerialNumber string     `json:"serialNumber,omitempty"`
	PurchaseDate *time.Time `json:"purchaseDate,omitempty"`
	Cost         *float64   `json:"cost,omitempty"`
	Status       string     `json:"status"`
	Notes        string     `json:"notes,omitempty"`
	HolderID     *int64     `json:"holderId,omitempty"`
	HolderName   string     `json:"holderName,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type Allocation struct {
	ID              int64      `json:"id"`
	AssetID         int64      `json:"assetId"`
	AssetTag        string     `json:"assetTag,omitempty"`
	AssetName       string     `json:"assetName,omitempty"`
	EmployeeID      int64      `json:"employeeId"`
	EmployeeName    string     `json:"employeeName,omitempty"`
	AllocatedBy     *int64     `json:"allocatedBy,omitempty"`
	AllocatedAt     time.Time  `json:"allocatedAt"`
	ReturnedAt      *time.Time `json:"returnedAt,omitempty"`
	ReturnCondition string     `json:"returnCondition,omitempty"`
	Notes           string     `json:"notes,omitempty"`
}

type Filter struct {
	Status   string
	Category string
	Query    string
}

func ValidStatus(status string) bool {
	switch status {
	case StatusAvailable, StatusAllocated, StatusMaintenance, StatusRetired:
		return true
	default:
		return false
	}
}

// StatusAfterReturn maps a return condition to the asset's next status.
func StatusAfterReturn(condition string) string {
	switch condition {
	case ConditionDamaged:
		return StatusMaintenance
	case ConditionLost:
		return StatusRetired
	default:
		return StatusAvailable
	}
}

// CanSetStatus checks a manual status change. Allocation and return have
// their own operations.
func CanSetStatus(from, to string) error {
	if !ValidStatus(to) || to == StatusAllocated {
		return ErrInvalidStatus
	}
	switch from {
	case StatusRetired:
		return ErrRetired
	case StatusAllocated:
		return ErrReturnFirst
	}
	return nil
}
