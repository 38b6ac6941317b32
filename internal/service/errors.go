package service

import (
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/kangminhyuk1111/hoops/internal/repository"
)

// Kind classifies an Error so callers can decide how to react without
// inspecting codes.
type Kind int

const (
	KindValidation  Kind = iota + 1 // malformed or out-of-policy input
	KindConflict                    // operation not valid for the current state
	KindNotFound                    // referenced entity does not exist
	KindForbidden                   // caller is not allowed to act on the entity
	KindConcurrency                 // lost a race with a concurrent mutation
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConcurrency:
		return "concurrency"
	}
	return "unknown"
}

// Code is the stable error identifier exposed to API clients.
type Code string

// Error is a domain error.  Two errors are equal under errors.Is when their
// codes match, so callers can compare against the exported values below.
type Error struct {
	Code    Code
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return string(e.Code) + ": " + e.Message }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newErr(kind Kind, code Code, msg string) *Error {
	return &Error{Code: code, Kind: kind, Message: msg}
}

// Validation errors.
var (
	ErrInvalidCommand               = newErr(KindValidation, "INVALID_COMMAND", "request is missing required fields")
	ErrInvalidSchedule              = newErr(KindValidation, "INVALID_SCHEDULE", "match date or time is malformed")
	ErrMatchDurationTooShort        = newErr(KindValidation, "MATCH_DURATION_TOO_SHORT", "a match must last at least one hour")
	ErrMatchTooSoon                 = newErr(KindValidation, "MATCH_TOO_SOON", "a match must start at least two hours from now")
	ErrMatchTooFar                  = newErr(KindValidation, "MATCH_TOO_FAR", "a match must start within fourteen days")
	ErrInvalidMaxParticipants       = newErr(KindValidation, "INVALID_MAX_PARTICIPANTS", "max participants must be between 4 and 20")
	ErrInvalidMaxParticipantsUpdate = newErr(KindValidation, "INVALID_MAX_PARTICIPANTS_UPDATE", "max participants cannot drop below the confirmed count")
	ErrCancelReasonRequired         = newErr(KindValidation, "CANCEL_REASON_REQUIRED", "a cancel reason is required")
	ErrRejectReasonRequired         = newErr(KindValidation, "REJECT_REASON_REQUIRED", "a reject reason is required")
	ErrHostCannotParticipate        = newErr(KindValidation, "HOST_CANNOT_PARTICIPATE", "the host cannot request to join their own match")
	ErrInvalidSortType              = newErr(KindValidation, "INVALID_SORT_TYPE", "sort must be DISTANCE or URGENCY")
	ErrInvalidSearchDistance        = newErr(KindValidation, "INVALID_SEARCH_DISTANCE", "distance is out of range")
	ErrInvalidCoordinates           = newErr(KindValidation, "INVALID_COORDINATES", "latitude or longitude is out of range")
	ErrInvalidStatusFilter          = newErr(KindValidation, "INVALID_STATUS_FILTER", "unknown match status")
	ErrInvalidPaging                = newErr(KindValidation, "INVALID_PAGING", "page must be >= 0 and size between 1 and 100")
	ErrInvalidLocation              = newErr(KindValidation, "INVALID_LOCATION", "location name, address and coordinates are required")
	ErrInvalidNickname              = newErr(KindValidation, "INVALID_NICKNAME", "nickname must be 2 to 20 characters")
	ErrTitleTooLong                 = newErr(KindValidation, "TITLE_TOO_LONG", "title must be at most 100 characters")
	ErrReasonTooLong                = newErr(KindValidation, "REASON_TOO_LONG", "reason must be at most 255 characters")
	ErrInvalidProfileImage          = newErr(KindValidation, "INVALID_PROFILE_IMAGE", "profile image must be an http(s) URL of at most 500 characters")
)

// State conflicts.
var (
	ErrOverlappingHosting          = newErr(KindConflict, "OVERLAPPING_HOSTING", "the host already has a match in this time window")
	ErrOverlappingParticipation    = newErr(KindConflict, "OVERLAPPING_PARTICIPATION", "the user already has a match in this time window")
	ErrCancelTimeExceeded          = newErr(KindConflict, "CANCEL_TIME_EXCEEDED", "matches cannot be cancelled within two hours of the start")
	ErrParticipationCancelTimeOver = newErr(KindConflict, "PARTICIPATION_CANCEL_TIME_EXCEEDED", "participations cannot be cancelled within two hours of the start")
	ErrMatchFull                   = newErr(KindConflict, "MATCH_FULL", "the match is full")
	ErrMatchNotRecruiting          = newErr(KindConflict, "MATCH_NOT_RECRUITING", "the match is not recruiting")
	ErrAlreadyParticipating        = newErr(KindConflict, "ALREADY_PARTICIPATING", "the user already participates in this match")
	ErrReapplyLimitExceeded        = newErr(KindConflict, "REAPPLY_LIMIT_EXCEEDED", "the user has used up their re-requests for this match")
	ErrReactivateWindowExpired     = newErr(KindConflict, "REACTIVATE_WINDOW_EXPIRED", "the reactivation window has expired")
	ErrMatchCannotReactivate       = newErr(KindConflict, "MATCH_CANNOT_REACTIVATE", "only cancelled matches that have not started can be reactivated")
	ErrMatchAlreadyStarted         = newErr(KindConflict, "MATCH_ALREADY_STARTED", "the match has already started or ended")
	ErrMatchAlreadyCancelled       = newErr(KindConflict, "MATCH_ALREADY_CANCELLED", "the match is already cancelled")
	ErrMatchCannotBeUpdated        = newErr(KindConflict, "MATCH_CANNOT_BE_UPDATED", "only pending matches can be updated")
	ErrInvalidParticipationStatus  = newErr(KindConflict, "INVALID_PARTICIPATION_STATUS", "the participation is not in a valid state for this operation")
	ErrDuplicateLocationName       = newErr(KindConflict, "DUPLICATE_LOCATION_NAME", "a location with this name already exists")
	ErrDuplicateNickname           = newErr(KindConflict, "DUPLICATE_NICKNAME", "the nickname is taken")
)

// ErrScheduleLocked shares its code with ErrMatchCannotBeUpdated, so clients
// see one code and errors.Is matches either value.
var ErrScheduleLocked = newErr(KindConflict, "MATCH_CANNOT_BE_UPDATED", "the schedule cannot change while players have requested or joined")

// Lookups.
var (
	ErrMatchNotFound         = newErr(KindNotFound, "MATCH_NOT_FOUND", "match not found")
	ErrParticipationNotFound = newErr(KindNotFound, "PARTICIPATION_NOT_FOUND", "participation not found")
	ErrLocationNotFound      = newErr(KindNotFound, "LOCATION_NOT_FOUND", "location not found")
	ErrUserNotFound          = newErr(KindNotFound, "USER_NOT_FOUND", "user not found")
)

// Authorization.
var (
	ErrNotMatchHost   = newErr(KindForbidden, "NOT_MATCH_HOST", "only the host can perform this operation")
	ErrNotParticipant = newErr(KindForbidden, "NOT_PARTICIPANT", "only the participant can perform this operation")
)

// ErrConcurrentModification is returned when a mutation still loses the race
// after the automatic retry.
var ErrConcurrentModification = newErr(KindConcurrency, "CONCURRENT_MODIFICATION", "the match was modified concurrently, please retry")

// AsError extracts a domain error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// isConcurrency reports whether err is worth one automatic retry: a version
// mismatch detected by the repository, or a MySQL deadlock / lock wait
// timeout.
func isConcurrency(err error) bool {
	if errors.Is(err, repository.ErrVersionConflict) || errors.Is(err, ErrConcurrentModification) {
		return true
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1213 || me.Number == 1205
	}
	return false
}
