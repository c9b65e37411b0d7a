package interaction

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/FARHATREKAYA/quran-app/core"
)

// Report types
const (
	ReportTranslationError = "translation_error"
	ReportAudioError       = "audio_error"
	ReportTafsirError      = "tafsir_error"
	ReportOther            = "other"
)

// Report statuses
const (
	StatusPending  = "pending"
	StatusReviewed = "reviewed"
	StatusResolved = "resolved"
	StatusRejected = "rejected"
)

// Moderation actions
const (
	ActionApprove = "approve"
	ActionDecline = "decline"
	ActionDelete  = "delete"
)

type ReportType struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var ReportTypes = []ReportType{
	{ReportTranslationError, "Translation Error"},
	{ReportAudioError, "Audio Error"},
	{ReportTafsirError, "Tafsir/Explanation Error"},
	{ReportOther, "Other Issue"},
}

// VerseInfo locates the verse a comment or report is about.
type VerseInfo struct {
	SurahName   string `json:"surah_name,omitempty"`
	VerseNumber int    `json:"verse_number,omitempty"`
	Label       string `json:"verse_info,omitempty"`
}

type Comment struct {
	ID         int64      `json:"id"`
	UserID     string     `json:"user_id"`
	Username   string     `json:"username"`
	VerseID    int        `json:"verse_id"`
	Content    string     `json:"content"`
	IsPublic   bool       `json:"is_public"`
	IsApproved bool       `json:"is_approved"`
	ApprovedBy string     `json:"approved_by,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	VerseInfo
}

type Report struct {
	ID          int64      `json:"id"`
	UserID      string     `json:"user_id"`
	Username    string     `json:"username"`
	VerseID     int        `json:"verse_id"`
	ReportType  string     `json:"report_type"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	AdminNotes  string     `json:"admin_notes"`
	CreatedAt   time.Time  `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at"`
	VerseInfo
}

type Stats struct {
	PendingComments int `json:"pending_comments"`
	PendingReports  int `json:"pending_reports"`
	TotalUsers      int `json:"total_users"`
	TotalComments   int `json:"total_comments"`
	TotalReports    int `json:"total_reports"`
	BlockedUsers    int `json:"blocked_users"`
}

// CommentFilter applies AND operation on its non-zero fields.
type CommentFilter struct {
	VerseID  int
	UserID   string
	Approved *bool
	// VisibleTo keeps the approved public comments plus the comments of that user.
	VisibleTo string
}

// ReportFilter applies AND operation on its non-zero fields.
type ReportFilter struct {
	VerseID int
	UserID  string
	Status  string
}

type NewComment struct {
	Content  string `json:"content" validate:"required,notblank,max=5000"`
	IsPublic *bool  `json:"is_public"`
}

func (nc *NewComment) Validate(validate *validator.Validate) error {
	nc.Content = core.CleanString(nc.Content)
	return validate.Struct(nc)
}

type UpdateComment struct {
	Content string `json:"content" validate:"required,notblank,max=5000"`
}

func (uc *UpdateComment) Validate(validate *validator.Validate) error {
	uc.Content = core.CleanString(uc.Content)
	return validate.Struct(uc)
}

type NewReport struct {
	ReportType  string `json:"report_type" validate:"required,oneof=translation_error audio_error tafsir_error other"`
	Description string `json:"description" validate:"required,min=10,max=2000"`
}

func (nr *NewReport) Validate(validate *validator.Validate) error {
	nr.ReportType = core.CleanString(nr.ReportType, true /* lower */)
	nr.Description = core.CleanString(nr.Description)
	return validate.Struct(nr)
}

type Moderation struct {
	Action string `json:"action" validate:"required,oneof=approve decline delete"`
	Reason string `json:"reason"`
}

func (m *Moderation) Validate(validate *validator.Validate) error {
	m.Action = core.CleanString(m.Action, true /* lower */)
	return validate.Struct(m)
}

type UpdateReport struct {
	Status     string `json:"status" validate:"required,oneof=pending reviewed resolved rejected"`
	AdminNotes string `json:"admin_notes" validate:"max=2000"`
}

func (ur *UpdateReport) Validate(validate *validator.Validate) error {
	ur.Status = core.CleanString(ur.Status, true /* lower */)
	ur.AdminNotes = core.CleanString(ur.AdminNotes)
	return validate.Struct(ur)
}
