// Package policy holds the access rule of every API operation in one table.
package policy

import (
	"errors"
	"fmt"

	"github.com/meetly/meetly/internal/model"
)

// Rule is the requirement a caller must meet for an operation.
type Rule int

const (
	Anonymous Rule = iota
	Authenticated
	Owner
	Admin
)

func (r Rule) String() string {
	switch r {
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	case Owner:
		return "owner"
	case Admin:
		return "admin"
	default:
		return fmt.Sprintf("rule(%d)", int(r))
	}
}

// Operation names an API operation.
type Operation string

const (
	AuthRegister       Operation = "auth.register"
	AuthLogin          Operation = "auth.login"
	MeetingListAll     Operation = "meeting.list_all"
	MeetingListMine    Operation = "meeting.list_mine"
	MeetingGet         Operation = "meeting.get"
	MeetingJoin        Operation = "meeting.join"
	MeetingCreate      Operation = "meeting.create"
	MeetingUpdate      Operation = "meeting.update"
	MeetingCancel      Operation = "meeting.cancel"
	MeetingHardDelete  Operation = "meeting.hard_delete"
	MeetingInvite      Operation = "meeting.invite"
	MeetingInvitations Operation = "meeting.invitations"
	FilePhotoUpload    Operation = "file.photo_upload"
	FileDocumentUpload Operation = "file.document_upload"
	FileGet            Operation = "file.get"
)

// Rules is the access table. meeting.list_all is open to any signed-in
// user, which exposes other users' meetings; it is kept for compatibility
// with existing clients.
var Rules = map[Operation]Rule{
	AuthRegister:       Anonymous,
	AuthLogin:          Anonymous,
	MeetingListAll:     Authenticated,
	MeetingListMine:    Authenticated,
	MeetingGet:         Authenticated,
	MeetingJoin:        Anonymous,
	MeetingCreate:      Authenticated,
	MeetingUpdate:      Owner,
	MeetingCancel:      Owner,
	MeetingHardDelete:  Admin,
	MeetingInvite:      Owner,
	MeetingInvitations: Owner,
	FilePhotoUpload:    Anonymous,
	FileDocumentUpload: Authenticated,
	FileGet:            Authenticated,
}

// Policy errors.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("insufficient role")
	ErrNotOwner        = errors.New("caller does not own the resource")
	ErrUnknownOp       = errors.New("unknown operation")
)

// RuleFor returns the rule of op.
func RuleFor(op Operation) (Rule, error) {
	r, ok := Rules[op]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownOp, op)
	}
	return r, nil
}

// Check decides whether id may perform op. ownerID is the creator of the
// target resource and only matters for Owner rules; pass "" to check the
// identity part alone (route middleware does this before the resource is
// loaded).
func Check(op Operation, id *model.Identity, ownerID string) error {
	rule, err := RuleFor(op)
	if err != nil {
		return err
	}

	switch rule {
	case Anonymous:
		return nil
	case Authenticated:
		if id == nil {
			return ErrUnauthenticated
		}
		return nil
	case Owner:
		if id == nil {
			return ErrUnauthenticated
		}
		if ownerID != "" && ownerID != id.UserID {
			return ErrNotOwner
		}
		return nil
	case Admin:
		if id == nil {
			return ErrUnauthenticated
		}
		if !id.IsAdmin() {
			return ErrForbidden
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownOp, op)
	}
}
