package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/DoyleJ11/bingo-backend/internal/client"
	"github.com/DoyleJ11/bingo-backend/internal/config"
	"github.com/DoyleJ11/bingo-backend/internal/engine"
	"github.com/DoyleJ11/bingo-backend/internal/logger"
	"github.com/DoyleJ11/bingo-backend/internal/poll"
	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type app struct {
	cfg        *config.Config
	configPath string
	api        *client.Client
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var (
		url, player, name string
	)

	root := &cobra.Command{
		Use:           "bingo",
		Short:         "Play polling bingo against a bingo server",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if url != "" {
				cfg.Client.URL = url
			}
			if player != "" {
				cfg.Client.PlayerID = player
			}
			if name != "" {
				cfg.Client.Name = name
			}
			if cfg.Client.PlayerID == "" {
				cfg.Client.PlayerID = uuid.NewString()
				pterm.Info.Printfln("No player id set, using %s (pass --player to reuse it)", cfg.Client.PlayerID)
			}
			a.cfg = cfg
			a.api = client.New(cfg.Client.URL, cfg.Client.PlayerID, nil)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to a config file")
	flags.StringVar(&url, "server", "", "bingo server URL (default from client.url)")
	flags.StringVar(&player, "player", "", "your player id (default from client.player_id)")
	flags.StringVar(&name, "name", "", "display name for create and join")

	root.AddCommand(
		a.createCmd(),
		a.joinCmd(),
		a.sessionCmd("start", "Start a waiting session (host only)", a.start),
		a.sessionCmd("draw", "Draw the next number (host only)", a.draw),
		a.claimCmd(),
		a.sessionCmd("reset", "Play again with fresh boards (host only)", a.reset),
		a.sessionCmd("leave", "Leave a session; the host leaving closes it", a.leave),
		a.sessionCmd("watch", "Follow a session until it ends", a.watch),
	)
	return root
}

func (a *app) createCmd() *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a session and take the host seat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			seat, err := a.api.CreateSession(cmd.Context(), code, a.cfg.Client.Name)
			if err != nil {
				return err
			}
			pterm.Success.Printfln("Session %s created, share code %s", seat.SessionID, pterm.LightYellow(seat.Code))
			pterm.Println(renderBoard(seat.Board, nil))
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "join code to use instead of a generated one")
	return cmd
}

func (a *app) joinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join CODE",
		Short: "Join a waiting session by its code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seat, err := a.api.JoinSession(cmd.Context(), args[0], a.cfg.Client.Name)
			if err != nil {
				return err
			}
			pterm.Success.Printfln("Joined session %s", seat.SessionID)
			pterm.Println(renderBoard(seat.Board, nil))
			return nil
		},
	}
}

func (a *app) claimCmd() *cobra.Command {
	var (
		kind string
		line int
	)
	cmd := &cobra.Command{
		Use:   "claim SESSION_ID",
		Short: "Claim bingo on a row, column or diagonal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := engine.Pattern{Kind: engine.PatternKind(kind), Line: line}
			if err := p.Validate(); err != nil {
				return err
			}
			c, err := a.api.SubmitClaim(cmd.Context(), args[0], p)
			if err != nil {
				return err
			}
			if c.Verified {
				pterm.Success.Printfln("BINGO! %s verified", p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(engine.PatternRow), "row, column or diagonal")
	cmd.Flags().IntVar(&line, "line", 0, "row/column 0-4, or diagonal 0 (main) / 1 (anti)")
	return cmd
}

func (a *app) sessionCmd(use, short string, run func(ctx context.Context, sessionID string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " SESSION_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args[0])
		},
	}
}

func (a *app) start(ctx context.Context, sessionID string) error {
	sess, err := a.api.StartSession(ctx, sessionID)
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Session started (revision %d)", sess.Revision)
	return nil
}

func (a *app) draw(ctx context.Context, sessionID string) error {
	m, err := a.api.DrawNumber(ctx, sessionID)
	if err != nil {
		if engine.Retryable(err) {
			pterm.Warning.Println("Someone else changed the session first, try again")
		}
		return err
	}
	pterm.Info.Printfln("#%d  %s", m.Seq, pterm.LightGreen(m.Display))
	return nil
}

func (a *app) reset(ctx context.Context, sessionID string) error {
	if _, err := a.api.ResetSession(ctx, sessionID); err != nil {
		return err
	}
	pterm.Success.Println("New round, new boards")
	return nil
}

func (a *app) leave(ctx context.Context, sessionID string) error {
	if err := a.api.LeaveSession(ctx, sessionID); err != nil {
		return err
	}
	pterm.Info.Println("Left the session")
	return nil
}

// watch redraws the session every time its revision moves.
func (a *app) watch(ctx context.Context, sessionID string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	zlog, err := logger.New("warn", "console")
	if err != nil {
		return err
	}
	defer zlog.Sync()

	syncer := poll.NewSyncer(a.api, sessionID, a.cfg.Client.PlayerID, a.cfg.Poll.Interval, zlog)
	done := make(chan error, 1)
	go func() { done <- syncer.Run(ctx) }()

	area, err := pterm.DefaultArea.WithRemoveWhenDone(false).Start()
	if err != nil {
		return err
	}
	defer area.Stop()

	for snap := range syncer.Snapshots() {
		area.Update(renderSnapshot(snap, a.cfg.Client.PlayerID))
	}

	switch err := <-done; {
	case err == nil:
		return nil
	case errors.Is(err, engine.ErrSessionNotFound):
		pterm.Info.Println("The session has closed")
		return nil
	case errors.Is(err, engine.ErrPlayerNotFound):
		pterm.Info.Println("You are no longer in this session")
		return nil
	default:
		zlog.Error("watch stopped", zap.Error(err))
		return fmt.Errorf("watch: %w", err)
	}
}
