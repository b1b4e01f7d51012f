package engine

import "errors"

var ErrSessionNotFound = errors.New("session not found")
var ErrPlayerNotFound = errors.New("player not in session")
var ErrSessionNotWaiting = errors.New("session is not waiting for players")
var ErrNotHost = errors.New("only the host can do that")
var ErrNotStarted = errors.New("session has not started")
var ErrNotFinished = errors.New("session is not finished")
var ErrInsufficientPlayers = errors.New("not enough players to start")
var ErrExhausted = errors.New("all numbers have been drawn")
var ErrStaleWrite = errors.New("session changed since it was read")
var ErrAlreadyWon = errors.New("session already has a winner")
var ErrPatternInvalid = errors.New("invalid pattern")
var ErrCodeCollision = errors.New("join code already in use")
var ErrInvalidCode = errors.New("invalid join code")
var ErrInvalidName = errors.New("invalid display name")
var ErrInvalidPlayer = errors.New("missing player id")
var ErrUnavailable = errors.New("store unavailable")
var ErrUnsupportedCommand = errors.New("unsupported command")
var ErrMalformedRequest = errors.New("malformed request")

type Kind string

const (
	KindValidation    Kind = "validation"
	KindConflict      Kind = "conflict"
	KindAuthorization Kind = "authorization"
	KindNotFound      Kind = "not_found"
	KindUnavailable   Kind = "unavailable"
	KindInternal      Kind = "internal"
)

var kinds = []struct {
	err  error
	kind Kind
	code string
}{
	{ErrPatternInvalid, KindValidation, "pattern_invalid"},
	{ErrInvalidCode, KindValidation, "invalid_code"},
	{ErrInvalidName, KindValidation, "invalid_name"},
	{ErrInvalidPlayer, KindValidation, "invalid_player"},
	{ErrUnsupportedCommand, KindValidation, "unsupported_command"},
	{ErrMalformedRequest, KindValidation, "malformed_request"},

	{ErrStaleWrite, KindConflict, "stale_write"},
	{ErrAlreadyWon, KindConflict, "already_won"},
	{ErrExhausted, KindConflict, "exhausted"},
	{ErrCodeCollision, KindConflict, "code_collision"},
	{ErrSessionNotWaiting, KindConflict, "session_not_waiting"},
	{ErrNotStarted, KindConflict, "not_started"},
	{ErrNotFinished, KindConflict, "not_finished"},
	{ErrInsufficientPlayers, KindConflict, "insufficient_players"},

	{ErrNotHost, KindAuthorization, "not_host"},

	{ErrSessionNotFound, KindNotFound, "session_not_found"},
	{ErrPlayerNotFound, KindNotFound, "player_not_found"},

	{ErrUnavailable, KindUnavailable, "unavailable"},
}

// KindOf sorts an error into the taxonomy callers use to decide between
// re-fetching, giving up, or waiting for the next poll.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// Retryable is true only for a lost compare-and-set race.
func Retryable(err error) bool {
	return errors.Is(err, ErrStaleWrite)
}

// CodeOf names the sentinel behind err for the wire. Unknown errors are
// "internal".
func CodeOf(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.code
		}
	}
	return "internal"
}

// FromCode is the inverse of CodeOf; nil when the code is unknown.
func FromCode(code string) error {
	for _, k := range kinds {
		if k.code == code {
			return k.err
		}
	}
	return nil
}
