package models

import "time"

// VendorStatus статус верификации продавца
type VendorStatus string

const (
	VendorPending   VendorStatus = "pending"
	VendorApproved  VendorStatus = "approved"
	VendorRejected  VendorStatus = "rejected"
	VendorSuspended VendorStatus = "suspended"
)

var vendorTransitions = map[VendorStatus]map[VendorStatus]bool{
	VendorPending:   {VendorApproved: true, VendorRejected: true},
	VendorApproved:  {VendorSuspended: true},
	VendorSuspended: {VendorApproved: true},
	VendorRejected:  {VendorApproved: true},
}

// CanTransition сообщает, допустим ли переход статуса продавца
func (s VendorStatus) CanTransition(to VendorStatus) bool {
	return vendorTransitions[s][to]
}

// Vendor представляет продавца, привязанного к профилю
type Vendor struct {
	ID              int64        `json:"id"`
	ProfileID       int64        `json:"profile_id"`
	BusinessName    string       `json:"business_name"`
	BusinessAddress string       `json:"business_address"`
	Phone           string       `json:"phone"`
	Status          VendorStatus `json:"status"`
	ApprovedBy      *int64       `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time   `json:"approved_at,omitempty"`
	RejectionReason string       `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}
