package models

import "time"

// Role is a back-office role.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleVendor Role = "vendor"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleVendor
}

// User is a back-office user keyed by Firebase uid.
type User struct {
	UID         string    `json:"uid" firestore:"-"`
	Email       string    `json:"email" firestore:"email"`
	DisplayName string    `json:"display_name,omitempty" firestore:"display_name"`
	Role        Role      `json:"role" firestore:"role"`
	VendorID    string    `json:"vendor_id,omitempty" firestore:"vendor_id"`
	VendorName  string    `json:"vendor_name,omitempty" firestore:"vendor_name"`
	CreatedAt   time.Time `json:"created_at" firestore:"created_at"`
}

// Vendor is the admin view of a print vendor.
type Vendor struct {
	VendorID   string `json:"vendor_id"`
	VendorName string `json:"vendor_name"`
	Email      string `json:"email"`
	UID        string `json:"uid"`
	OpenJobs   int    `json:"open_jobs"`
}
