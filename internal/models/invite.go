package models

import "time"

// InviteStatus values.
type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "pending"
	InviteStatusAccepted InviteStatus = "accepted"
	InviteStatusRevoked  InviteStatus = "revoked"
)

// Invite grants a role to whoever signs in with the invited email.
type Invite struct {
	ID         string       `json:"id" firestore:"-"`
	Email      string       `json:"email" firestore:"email"`
	Role       Role         `json:"role" firestore:"role"`
	VendorName string       `json:"vendor_name,omitempty" firestore:"vendor_name"`
	Status     InviteStatus `json:"status" firestore:"status"`
	Token      string       `json:"token,omitempty" firestore:"token"`
	InvitedBy  string       `json:"invited_by,omitempty" firestore:"invited_by"`
	AcceptedBy string       `json:"accepted_by,omitempty" firestore:"accepted_by"`
	ExpiresAt  time.Time    `json:"expires_at" firestore:"expires_at"`
	CreatedAt  time.Time    `json:"created_at" firestore:"created_at"`
}

// CreateInviteRequest is the body of POST /api/invites.
type CreateInviteRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Role       Role   `json:"role" binding:"required"`
	VendorName string `json:"vendor_name"`
}

// AcceptInviteRequest is the body of POST /api/invites/accept.
type AcceptInviteRequest struct {
	Token       string `json:"token" binding:"required"`
	DisplayName string `json:"display_name"`
}
