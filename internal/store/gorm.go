package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DoyleJ11/bingo-backend/internal/engine"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type sessionRow struct {
	ID            string                   `gorm:"primaryKey;size:36"`
	Code          string                   `gorm:"uniqueIndex;size:6;not null"`
	HostID        string                   `gorm:"not null"`
	Phase         string                   `gorm:"not null;default:'waiting'"`
	Drawn         datatypes.JSONSlice[int] `gorm:"not null"`
	CurrentNumber int                      `gorm:"not null;default:0"`
	WinnerID      string                   `gorm:"not null;default:''"`
	Revision      int64                    `gorm:"not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (sessionRow) TableName() string { return "sessions" }

type playerRow struct {
	SessionID string                           `gorm:"primaryKey;size:36"`
	ID        string                           `gorm:"primaryKey"`
	Name      string                           `gorm:"not null"`
	Board     datatypes.JSONType[engine.Board] `gorm:"not null"`
	IsHost    bool                             `gorm:"not null;default:false"`
	HasWon    bool                             `gorm:"not null;default:false"`
	JoinedAt  time.Time                        `gorm:"index"`
}

func (playerRow) TableName() string { return "players" }

type moveRow struct {
	SessionID string `gorm:"primaryKey;size:36;uniqueIndex:idx_moves_session_number,priority:1"`
	Seq       int    `gorm:"primaryKey;autoIncrement:false"`
	Number    int    `gorm:"not null;uniqueIndex:idx_moves_session_number,priority:2"`
	DrawnAt   time.Time
}

func (moveRow) TableName() string { return "moves" }

// claimRow allows at most one verified claim per session; unverified claims
// are unlimited.
type claimRow struct {
	ID        string `gorm:"primaryKey;size:36"`
	SessionID string `gorm:"index;size:36;not null;uniqueIndex:idx_claims_one_verified,where:verified"`
	PlayerID  string `gorm:"not null"`
	Kind      string `gorm:"not null"`
	Line      int    `gorm:"not null"`
	Verified  bool   `gorm:"not null;default:false"`
	CreatedAt time.Time
}

func (claimRow) TableName() string { return "claims" }

// Gorm is the SQL-backed Store. Conditional session updates are a single
// UPDATE ... WHERE statement checked through RowsAffected.
type Gorm struct {
	db *gorm.DB
}

// OpenGorm connects with the named driver ("postgres" or "sqlite") and
// migrates the schema.
func OpenGorm(driver, dsn string, logMode bool) (*Gorm, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", driver)
	}

	gormLogger := logger.Default
	if !logMode {
		gormLogger = gormLogger.LogMode(logger.Silent)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	if driver == "sqlite" {
		// one writer; also keeps a :memory: database alive across calls
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return NewGorm(db)
}

func NewGorm(db *gorm.DB) (*Gorm, error) {
	if err := db.AutoMigrate(&sessionRow{}, &playerRow{}, &moveRow{}, &claimRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Gorm{db: db}, nil
}

func (g *Gorm) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (g *Gorm) CreateSession(ctx context.Context, s Session) error {
	row := toSessionRow(s)
	return translate(g.db.WithContext(ctx).Create(&row).Error)
}

func (g *Gorm) GetSession(ctx context.Context, id string) (Session, error) {
	var row sessionRow
	if err := g.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return Session{}, translate(err)
	}
	return row.toSession(), nil
}

func (g *Gorm) GetSessionByCode(ctx context.Context, code string) (Session, error) {
	var row sessionRow
	if err := g.db.WithContext(ctx).First(&row, "code = ?", code).Error; err != nil {
		return Session{}, translate(err)
	}
	return row.toSession(), nil
}

func (g *Gorm) UpdateSession(ctx context.Context, id string, cond Condition, patch SessionPatch) (Session, error) {
	q := g.db.WithContext(ctx).Model(&sessionRow{}).Where("id = ?", id)
	if cond.Revision != nil {
		q = q.Where("revision = ?", *cond.Revision)
	}
	if cond.Phase != "" {
		q = q.Where("phase = ?", string(cond.Phase))
	}
	if cond.NoWinner {
		q = q.Where("winner_id = ?", "")
	}

	updates := map[string]any{
		"revision":   gorm.Expr("revision + 1"),
		"updated_at": time.Now(),
	}
	if patch.Phase != nil {
		updates["phase"] = string(*patch.Phase)
	}
	if patch.Drawn != nil {
		drawn := *patch.Drawn
		if drawn == nil {
			drawn = []int{}
		}
		updates["drawn"] = datatypes.JSONSlice[int](drawn)
		updates["current_number"] = currentNumber(drawn)
	}
	if patch.WinnerID != nil {
		updates["winner_id"] = *patch.WinnerID
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return Session{}, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := g.GetSession(ctx, id); err != nil {
			return Session{}, err
		}
		return Session{}, ErrConditionFailed
	}
	return g.GetSession(ctx, id)
}

// DeleteSession removes the session row first so pollers see it gone, then
// its dependent rows.
func (g *Gorm) DeleteSession(ctx context.Context, id string) error {
	db := g.db.WithContext(ctx)
	res := db.Delete(&sessionRow{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	for _, model := range []any{&playerRow{}, &moveRow{}, &claimRow{}} {
		if err := db.Delete(model, "session_id = ?", id).Error; err != nil {
			return translate(err)
		}
	}
	return nil
}

func (g *Gorm) UpsertPlayer(ctx context.Context, p Player) (Player, bool, error) {
	db := g.db.WithContext(ctx)
	if err := db.Select("id").First(&sessionRow{}, "id = ?", p.SessionID).Error; err != nil {
		return Player{}, false, translate(err)
	}

	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now()
	}
	row := toPlayerRow(p)
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return Player{}, false, translate(res.Error)
	}
	if res.RowsAffected == 1 {
		return p, true, nil
	}

	var existing playerRow
	if err := db.First(&existing, "session_id = ? AND id = ?", p.SessionID, p.ID).Error; err != nil {
		return Player{}, false, translate(err)
	}
	return existing.toPlayer(), false, nil
}

func (g *Gorm) ListPlayers(ctx context.Context, sessionID string) ([]Player, error) {
	var rows []playerRow
	err := g.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("joined_at ASC").Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	out := make([]Player, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toPlayer())
	}
	return out, nil
}

func (g *Gorm) UpdatePlayer(ctx context.Context, p Player) error {
	res := g.db.WithContext(ctx).Model(&playerRow{}).
		Where("session_id = ? AND id = ?", p.SessionID, p.ID).
		Updates(map[string]any{
			"name":    p.Name,
			"board":   datatypes.NewJSONType(p.Board),
			"is_host": p.IsHost,
			"has_won": p.HasWon,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *Gorm) DeletePlayer(ctx context.Context, sessionID, playerID string) error {
	err := g.db.WithContext(ctx).Delete(&playerRow{}, "session_id = ? AND id = ?", sessionID, playerID).Error
	return translate(err)
}

func (g *Gorm) AppendMove(ctx context.Context, m Move) error {
	if m.DrawnAt.IsZero() {
		m.DrawnAt = time.Now()
	}
	row := moveRow{SessionID: m.SessionID, Seq: m.Seq, Number: m.Number, DrawnAt: m.DrawnAt}
	return translate(g.db.WithContext(ctx).Create(&row).Error)
}

func (g *Gorm) ListMoves(ctx context.Context, sessionID string) ([]Move, error) {
	var rows []moveRow
	if err := g.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("seq ASC").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	out := make([]Move, 0, len(rows))
	for _, r := range rows {
		out = append(out, Move{SessionID: r.SessionID, Seq: r.Seq, Number: r.Number, DrawnAt: r.DrawnAt})
	}
	return out, nil
}

func (g *Gorm) DeleteMoves(ctx context.Context, sessionID string) error {
	return translate(g.db.WithContext(ctx).Delete(&moveRow{}, "session_id = ?", sessionID).Error)
}

func (g *Gorm) AddClaim(ctx context.Context, c Claim) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	row := claimRow{
		ID:        c.ID,
		SessionID: c.SessionID,
		PlayerID:  c.PlayerID,
		Kind:      string(c.Pattern.Kind),
		Line:      c.Pattern.Line,
		Verified:  c.Verified,
		CreatedAt: c.CreatedAt,
	}
	return translate(g.db.WithContext(ctx).Create(&row).Error)
}

func (g *Gorm) ListClaims(ctx context.Context, sessionID string) ([]Claim, error) {
	var rows []claimRow
	if err := g.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	out := make([]Claim, 0, len(rows))
	for _, r := range rows {
		out = append(out, Claim{
			ID:        r.ID,
			SessionID: r.SessionID,
			PlayerID:  r.PlayerID,
			Pattern:   engine.Pattern{Kind: engine.PatternKind(r.Kind), Line: r.Line},
			Verified:  r.Verified,
			CreatedAt: r.CreatedAt,
		})
	}
	return out, nil
}

func (g *Gorm) DeleteClaims(ctx context.Context, sessionID string) error {
	return translate(g.db.WithContext(ctx).Delete(&claimRow{}, "session_id = ?", sessionID).Error)
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return fmt.Errorf("store: %w", err)
}

func toSessionRow(s Session) sessionRow {
	drawn := s.Drawn
	if drawn == nil {
		drawn = []int{}
	}
	return sessionRow{
		ID:            s.ID,
		Code:          s.Code,
		HostID:        s.HostID,
		Phase:         string(s.Phase),
		Drawn:         drawn,
		CurrentNumber: currentNumber(drawn),
		WinnerID:      s.WinnerID,
		Revision:      s.Revision,
	}
}

func (r sessionRow) toSession() Session {
	var drawn []int
	if len(r.Drawn) > 0 {
		drawn = append(drawn, r.Drawn...)
	}
	return Session{
		ID:            r.ID,
		Code:          r.Code,
		HostID:        r.HostID,
		Phase:         engine.Phase(r.Phase),
		Drawn:         drawn,
		CurrentNumber: r.CurrentNumber,
		WinnerID:      r.WinnerID,
		Revision:      r.Revision,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func toPlayerRow(p Player) playerRow {
	return playerRow{
		SessionID: p.SessionID,
		ID:        p.ID,
		Name:      p.Name,
		Board:     datatypes.NewJSONType(p.Board),
		IsHost:    p.IsHost,
		HasWon:    p.HasWon,
		JoinedAt:  p.JoinedAt,
	}
}

func (r playerRow) toPlayer() Player {
	return Player{
		SessionID: r.SessionID,
		ID:        r.ID,
		Name:      r.Name,
		Board:     r.Board.Data(),
		IsHost:    r.IsHost,
		HasWon:    r.HasWon,
		JoinedAt:  r.JoinedAt,
	}
}

var _ Store = (*Gorm)(nil)
