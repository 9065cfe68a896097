package models

import "fmt"

// PostType is the closed set of post kinds.
type PostType string

const (
	PostTypeText    PostType = "text"
	PostTypeImage   PostType = "image"
	PostTypeLink    PostType = "link"
	PostTypeArtwork PostType = "artwork"
)

// ParsePostType validates a client supplied post type.
func ParsePostType(s string) (PostType, error) {
	switch t := PostType(s); t {
	case PostTypeText, PostTypeImage, PostTypeLink, PostTypeArtwork:
		return t, nil
	case "":
		return PostTypeText, nil
	}
	return "", NewValidationError(fmt.Sprintf("invalid post type %q", s))
}

// RequiresPayment reports whether posts of this type pass through the payment gate.
func (t PostType) RequiresPayment() bool {
	return t == PostTypeArtwork
}

// PaymentStatus tracks the payment gate on a post.
type PaymentStatus string

const (
	PaymentStatusNone    PaymentStatus = "none"
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// VerificationStatus is the moderation state of a post.
type VerificationStatus string

const (
	VerificationApproved VerificationStatus = "approved"
	VerificationPending  VerificationStatus = "pending"
	VerificationRejected VerificationStatus = "rejected"
	VerificationFlagged  VerificationStatus = "flagged"
)

// VoteType is an up or down vote.
type VoteType string

const (
	VoteUp   VoteType = "up"
	VoteDown VoteType = "down"
)

// ParseVoteType validates a client supplied vote type.
func ParseVoteType(s string) (VoteType, error) {
	switch t := VoteType(s); t {
	case VoteUp, VoteDown:
		return t, nil
	}
	return "", NewValidationError(fmt.Sprintf("invalid vote type %q", s))
}

// ModerationActionType is a moderator decision.
type ModerationActionType string

const (
	ActionApprove ModerationActionType = "approve"
	ActionReject  ModerationActionType = "reject"
	ActionFlag    ModerationActionType = "flag"
	ActionFeature ModerationActionType = "feature"
)

// ParseModerationAction validates a client supplied moderation action.
func ParseModerationAction(s string) (ModerationActionType, error) {
	switch a := ModerationActionType(s); a {
	case ActionApprove, ActionReject, ActionFlag, ActionFeature:
		return a, nil
	}
	return "", NewValidationError(fmt.Sprintf("invalid moderation action %q", s))
}

// ModerationOutcome records whether an audited decision changed the post.
type ModerationOutcome string

const (
	OutcomeApplied ModerationOutcome = "applied"
	OutcomeRefused ModerationOutcome = "refused"
)

// PaymentState is the lifecycle of a single Payment row.
type PaymentState string

const (
	PaymentInitiated PaymentState = "initiated"
	PaymentSucceeded PaymentState = "succeeded"
	PaymentFailed    PaymentState = "failed"
)
