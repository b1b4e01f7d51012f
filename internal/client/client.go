// Package client talks to the bingo HTTP API. Errors come back as the same
// engine sentinels the server produced, so errors.Is works across the wire.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/DoyleJ11/bingo-backend/internal/engine"
	"github.com/DoyleJ11/bingo-backend/internal/game"
	"github.com/DoyleJ11/bingo-backend/pkg/types"
)

type Client struct {
	baseURL  string
	playerID string
	http     *http.Client
}

func New(baseURL, playerID string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		playerID: playerID,
		http:     hc,
	}
}

func (c *Client) PlayerID() string { return c.playerID }

func (c *Client) CreateSession(ctx context.Context, code, name string) (types.SeatResponse, error) {
	var out types.SeatResponse
	_, err := c.do(ctx, http.MethodPost, "/sessions", types.CreateSessionRequest{Code: code, Name: name}, &out)
	return out, err
}

func (c *Client) JoinSession(ctx context.Context, code, name string) (types.SeatResponse, error) {
	var out types.SeatResponse
	_, err := c.do(ctx, http.MethodPost, "/sessions/join", types.JoinSessionRequest{Code: code, Name: name}, &out)
	return out, err
}

func (c *Client) StartSession(ctx context.Context, sessionID string) (types.SessionResponse, error) {
	var out types.SessionResponse
	_, err := c.do(ctx, http.MethodPost, sessionPath(sessionID, "start"), nil, &out)
	return out, err
}

func (c *Client) DrawNumber(ctx context.Context, sessionID string) (types.MoveResponse, error) {
	var out types.MoveResponse
	_, err := c.do(ctx, http.MethodPost, sessionPath(sessionID, "draw"), nil, &out)
	return out, err
}

func (c *Client) SubmitClaim(ctx context.Context, sessionID string, p engine.Pattern) (types.ClaimResponse, error) {
	var out types.ClaimResponse
	req := types.ClaimRequest{Kind: string(p.Kind), Line: p.Line}
	_, err := c.do(ctx, http.MethodPost, sessionPath(sessionID, "claims"), req, &out)
	return out, err
}

func (c *Client) ResetSession(ctx context.Context, sessionID string) (types.SessionResponse, error) {
	var out types.SessionResponse
	_, err := c.do(ctx, http.MethodPost, sessionPath(sessionID, "reset"), nil, &out)
	return out, err
}

func (c *Client) LeaveSession(ctx context.Context, sessionID string) error {
	_, err := c.do(ctx, http.MethodPost, sessionPath(sessionID, "leave"), nil, nil)
	return err
}

func (c *Client) GetSnapshot(ctx context.Context, sessionID string) (game.Snapshot, error) {
	var out game.Snapshot
	_, err := c.do(ctx, http.MethodGet, sessionPath(sessionID, ""), nil, &out)
	return out, err
}

// GetSnapshotSince reports changed=false, with an empty snapshot, when the
// server is still at revision since.
func (c *Client) GetSnapshotSince(ctx context.Context, sessionID string, since int64) (game.Snapshot, bool, error) {
	var out game.Snapshot
	path := sessionPath(sessionID, "") + "?since=" + strconv.FormatInt(since, 10)
	status, err := c.do(ctx, http.MethodGet, path, nil, &out)
	if err != nil {
		return game.Snapshot{}, false, err
	}
	if status == http.StatusNotModified {
		return game.Snapshot{}, false, nil
	}
	return out, true, nil
}

func sessionPath(sessionID, action string) string {
	p := "/sessions/" + url.PathEscape(sessionID)
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.playerID != "" {
		req.Header.Set(types.PlayerHeader, c.playerID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", engine.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified || resp.StatusCode == http.StatusNoContent:
		return resp.StatusCode, nil
	case resp.StatusCode >= 400:
		return resp.StatusCode, decodeError(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}

// decodeError turns an error envelope back into the engine sentinel it was
// built from, keeping any detail the server appended.
func decodeError(resp *http.Response) error {
	var env types.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&env); err != nil || env.Error.Code == "" {
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: http %d", engine.ErrUnavailable, resp.StatusCode)
		}
		return fmt.Errorf("http %d", resp.StatusCode)
	}

	sentinel := engine.FromCode(env.Error.Code)
	if sentinel == nil {
		return fmt.Errorf("http %d: %s", resp.StatusCode, env.Error.Message)
	}
	if detail, ok := strings.CutPrefix(env.Error.Message, sentinel.Error()); ok && detail != "" {
		return fmt.Errorf("%w%s", sentinel, detail)
	}
	return sentinel
}
