package models

import "time"

// StoryStatus tracks where a story is in the authoring pipeline.
type StoryStatus string

const (
	StoryStatusDraft    StoryStatus = "draft"
	StoryStatusReady    StoryStatus = "ready"
	StoryStatusApproved StoryStatus = "approved"
)

// IsValid reports whether s is a known status.
func (s StoryStatus) IsValid() bool {
	switch s {
	case StoryStatusDraft, StoryStatusReady, StoryStatusApproved:
		return true
	}
	return false
}

// StoryPage is one illustrated page of a storybook.
type StoryPage struct {
	Number   int    `json:"number" firestore:"number"`
	Text     string `json:"text" firestore:"text"`
	ImageKey string `json:"image_key,omitempty" firestore:"image_key,omitempty"`
}

// Story is the personalised book content printed for an order.
type Story struct {
	ID                 string      `json:"id" firestore:"-"`
	Title              string      `json:"title" firestore:"title"`
	ChildName          string      `json:"child_name" firestore:"child_name"`
	OrderID            string      `json:"order_id,omitempty" firestore:"order_id"`
	Pages              []StoryPage `json:"pages" firestore:"pages"`
	CoverImageKey      string      `json:"cover_image_key,omitempty" firestore:"cover_image_key"`
	PDFKey             string      `json:"pdf_key,omitempty" firestore:"pdf_key"`
	VoiceRecordingKeys []string    `json:"voice_recording_keys" firestore:"voice_recording_keys"`
	Status             StoryStatus `json:"status" firestore:"status"`
	CreatedAt          time.Time   `json:"created_at" firestore:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at" firestore:"updated_at"`
}

// StoryFilter narrows story listings.
type StoryFilter struct {
	OrderID string
	Status  StoryStatus
}

// StoryRequest is the create/update body for a story.
type StoryRequest struct {
	Title              string      `json:"title"`
	ChildName          string      `json:"child_name"`
	OrderID            string      `json:"order_id"`
	Pages              []StoryPage `json:"pages"`
	CoverImageKey      string      `json:"cover_image_key"`
	PDFKey             string      `json:"pdf_key"`
	VoiceRecordingKeys []string    `json:"voice_recording_keys"`
	Status             StoryStatus `json:"status"`
}
