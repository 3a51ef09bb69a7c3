package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type sessionRepository struct {
	db *sql.DB
}

// NewSessionRepository создаёт PostgreSQL-реализацию SessionRepository.
// Образ хранится в outfit_slots, корзина в cart_lines; обе таблицы переписываются целиком при Save.
func NewSessionRepository(store *Store) domain.SessionRepository {
	return &sessionRepository{db: store.DB()}
}

func (r *sessionRepository) Create(ctx context.Context, session domain.Session) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	hovered, err := encodeHovered(session.Hovered)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (id, view, theme, hovered, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		session.ID, string(session.View), string(session.Theme), hovered,
		session.Version, session.CreatedAt.UTC(), session.UpdatedAt.UTC(),
	); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSessionVersionConflict
		}
		return fmt.Errorf("insert session: %w", err)
	}

	if err := writeSessionContents(ctx, tx, session); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create session: %w", err)
	}
	return nil
}

func (r *sessionRepository) Get(ctx context.Context, id string) (domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	// Строка сессии, образ и корзина читаются из одного снимка.
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return domain.Session{}, fmt.Errorf("begin read tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		session      domain.Session
		view, theme  string
		hoveredBytes []byte
	)
	err = tx.QueryRowContext(ctx, `
		SELECT id, view, theme, hovered, version, created_at, updated_at
		FROM sessions
		WHERE id = $1
	`, id).Scan(
		&session.ID, &view, &theme, &hoveredBytes,
		&session.Version, &session.CreatedAt, &session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, domain.ErrSessionNotFound
		}
		return domain.Session{}, fmt.Errorf("select session: %w", err)
	}

	session.View = domain.View(view)
	session.Theme = domain.Theme(theme)
	session.CreatedAt = session.CreatedAt.UTC()
	session.UpdatedAt = session.UpdatedAt.UTC()
	if len(hoveredBytes) > 0 {
		var hovered domain.ClothingItem
		if err := json.Unmarshal(hoveredBytes, &hovered); err != nil {
			return domain.Session{}, fmt.Errorf("decode hovered item: %w", err)
		}
		session.Hovered = &hovered
	}

	if err := loadOutfit(ctx, tx, &session); err != nil {
		return domain.Session{}, err
	}
	if err := loadCart(ctx, tx, &session); err != nil {
		return domain.Session{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Session{}, fmt.Errorf("commit read tx: %w", err)
	}
	return session, nil
}

func (r *sessionRepository) Save(ctx context.Context, session domain.Session) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	hovered, err := encodeHovered(session.Hovered)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE sessions
		SET view = $1,
		    theme = $2,
		    hovered = $3,
		    version = version + 1,
		    updated_at = $4
		WHERE id = $5
		  AND version = $6
	`,
		string(session.View), string(session.Theme), hovered,
		session.UpdatedAt.UTC(), session.ID, session.Version,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, err := sessionExistsTx(ctx, tx, session.ID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrSessionNotFound
		}
		return domain.ErrSessionVersionConflict
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM outfit_slots WHERE session_id = $1`, session.ID); err != nil {
		return fmt.Errorf("clear outfit slots: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_lines WHERE session_id = $1`, session.ID); err != nil {
		return fmt.Errorf("clear cart lines: %w", err)
	}
	if err := writeSessionContents(ctx, tx, session); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save session: %w", err)
	}
	return nil
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *sessionRepository) DeleteIdle(ctx context.Context, before time.Time, limit int) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	// LIMIT NULL в PostgreSQL означает отсутствие ограничения.
	var batch sql.NullInt64
	if limit > 0 {
		batch = sql.NullInt64{Int64: int64(limit), Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		DELETE FROM sessions
		WHERE id IN (
			SELECT id
			FROM sessions
			WHERE updated_at < $1
			ORDER BY updated_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
	`, before.UTC(), batch)
	if err != nil {
		return 0, fmt.Errorf("delete idle sessions: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected for idle sessions: %w", err)
	}
	return int(affected), nil
}

func (r *sessionRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return count, nil
}

func loadOutfit(ctx context.Context, tx *sql.Tx, session *domain.Session) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT category, item_id, name, price, image
		FROM outfit_slots
		WHERE session_id = $1
	`, session.ID)
	if err != nil {
		return fmt.Errorf("load outfit slots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item     domain.ClothingItem
			category string
		)
		if err := rows.Scan(&category, &item.ID, &item.Name, &item.Price, &item.Image); err != nil {
			return fmt.Errorf("scan outfit slot: %w", err)
		}
		if item.Category, err = domain.ParseCategory(category); err != nil {
			return fmt.Errorf("outfit slot of session %s: %w", session.ID, err)
		}
		session.Outfit.Select(item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate outfit slots: %w", err)
	}
	return nil
}

func loadCart(ctx context.Context, tx *sql.Tx, session *domain.Session) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT item_id, name, price, category, image
		FROM cart_lines
		WHERE session_id = $1
		ORDER BY seq ASC
	`, session.ID)
	if err != nil {
		return fmt.Errorf("load cart lines: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.ClothingItem, 0)
	for rows.Next() {
		var (
			item     domain.ClothingItem
			category string
		)
		if err := rows.Scan(&item.ID, &item.Name, &item.Price, &category, &item.Image); err != nil {
			return fmt.Errorf("scan cart line: %w", err)
		}
		if item.Category, err = domain.ParseCategory(category); err != nil {
			return fmt.Errorf("cart line of session %s: %w", session.ID, err)
		}
		lines = append(lines, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate cart lines: %w", err)
	}

	session.Cart = domain.NewCart(lines)
	return nil
}

func writeSessionContents(ctx context.Context, tx *sql.Tx, session domain.Session) error {
	for _, item := range session.Outfit.Items() {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO outfit_slots (session_id, category, item_id, name, price, image)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, session.ID, item.Category.String(), item.ID, item.Name, item.Price, item.Image); err != nil {
			return fmt.Errorf("insert outfit slot: %w", err)
		}
	}

	for seq, item := range session.Cart.Lines() {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cart_lines (session_id, seq, item_id, name, price, category, image)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, session.ID, seq, item.ID, item.Name, item.Price, item.Category.String(), item.Image); err != nil {
			return fmt.Errorf("insert cart line: %w", err)
		}
	}
	return nil
}

func encodeHovered(item *domain.ClothingItem) (any, error) {
	if item == nil {
		return nil, nil
	}
	data, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("encode hovered item: %w", err)
	}
	return string(data), nil
}

func sessionExistsTx(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	var found string
	err := tx.QueryRowContext(ctx, `SELECT id FROM sessions WHERE id = $1`, id).Scan(&found)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check session exists: %w", err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.SessionRepository = (*sessionRepository)(nil)
