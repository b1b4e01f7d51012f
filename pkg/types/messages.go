// Package types holds the JSON bodies exchanged over the HTTP API.
package types

// PlayerHeader carries the caller's opaque player id on every request.
const PlayerHeader = "X-Player-ID"

// Client -> Server

type CreateSessionRequest struct {
	Code string `json:"code,omitempty"` // empty: server picks one
	Name string `json:"name"`
}

type JoinSessionRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type ClaimRequest struct {
	Kind string `json:"kind"` // "row" | "column" | "diagonal"
	Line int    `json:"line"`
}

// Server -> Client

type SeatResponse struct {
	SessionID string    `json:"session_id"`
	Code      string    `json:"code"`
	PlayerID  string    `json:"player_id"`
	IsHost    bool      `json:"is_host"`
	Board     [5][5]int `json:"board"`
	Revision  int64     `json:"revision"`
}

type SessionResponse struct {
	SessionID string `json:"session_id"`
	Phase     string `json:"phase"`
	Revision  int64  `json:"revision"`
}

type MoveResponse struct {
	Seq     int    `json:"seq"`
	Number  int    `json:"number"`
	Display string `json:"display"` // e.g. "G-52"
}

type ClaimResponse struct {
	ClaimID  string `json:"claim_id"`
	PlayerID string `json:"player_id"`
	Kind     string `json:"kind"`
	Line     int    `json:"line"`
	Verified bool   `json:"verified"`
}

type ErrorBody struct {
	Kind    string `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}
