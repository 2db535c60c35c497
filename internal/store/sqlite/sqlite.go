package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mirabellier/backend/internal/content"
	"github.com/mirabellier/backend/internal/model"
	"github.com/mirabellier/backend/internal/store"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// migrations is an ordered list of SQL migrations.
// Each migration runs exactly once, tracked by schema_version table.
var migrations = []string{
	// Migration 1: Initial schema
	`
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	password_hash TEXT,
	discord_id TEXT,
	avatar TEXT,
	banner TEXT,
	bio TEXT,
	location TEXT,
	website TEXT,
	role TEXT,
	created_at INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users(username);
CREATE INDEX IF NOT EXISTS idx_users_discord_id ON users(discord_id);

CREATE TABLE IF NOT EXISTS sessions (
	token TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS posts (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	content TEXT,
	short_description TEXT,
	thumbnail TEXT,
	tags TEXT,
	user_id TEXT,
	author TEXT,
	likes TEXT,
	comments TEXT,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_posts_user_id ON posts(user_id);

CREATE TABLE IF NOT EXISTS videos (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	url TEXT NOT NULL,
	user_id TEXT,
	likes TEXT,
	comments TEXT,
	created_at INTEGER NOT NULL,
	source TEXT,
	original_metadata TEXT
);
CREATE INDEX IF NOT EXISTS idx_videos_created_at ON videos(created_at DESC);

CREATE TABLE IF NOT EXISTS pics (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	url TEXT NOT NULL,
	user_id TEXT,
	likes TEXT,
	comments TEXT,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pics_created_at ON pics(created_at DESC);

CREATE TABLE IF NOT EXISTS anime (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	url TEXT,
	img TEXT,
	ord INTEGER NOT NULL
);
`,
	// Future migrations go here:
	// Migration 2: `ALTER TABLE ...`,
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return err
	}

	var currentVersion int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&currentVersion); err != nil {
		return err
	}

	for i := currentVersion; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
	}

	return nil
}

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	// Pre-check keeps the common case friendly; the unique index is the
	// backstop for the race.
	if _, err := s.GetUserByUsername(ctx, user.Username); err == nil {
		return store.ErrDuplicateUsername
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO users (id, username, password_hash, discord_id, avatar, banner, bio, location, website, role, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, user.ID, user.Username, nullIfEmpty(user.PasswordHash), nullIfEmpty(user.DiscordID),
		nullIfEmpty(user.Avatar), nullIfEmpty(user.Banner), nullIfEmpty(user.Bio),
		nullIfEmpty(user.Location), nullIfEmpty(user.Website), nullIfEmpty(user.Role), user.CreatedAt.Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateUsername
		}
		return err
	}
	return nil
}

const userColumns = `id, username, password_hash, discord_id, avatar, banner, bio, location, website, role, created_at`

func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (s *Store) GetUserByDiscordID(ctx context.Context, discordID string) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE discord_id = ? LIMIT 1`, discordID)
	return scanUser(row)
}

func (s *Store) UpdateUser(ctx context.Context, user *model.User) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE users
SET username = ?, password_hash = ?, discord_id = ?, avatar = ?, banner = ?, bio = ?, location = ?, website = ?, role = ?
WHERE id = ?
`, user.Username, nullIfEmpty(user.PasswordHash), nullIfEmpty(user.DiscordID),
		nullIfEmpty(user.Avatar), nullIfEmpty(user.Banner), nullIfEmpty(user.Bio),
		nullIfEmpty(user.Location), nullIfEmpty(user.Website), nullIfEmpty(user.Role), user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateUsername
		}
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateSession(ctx context.Context, token, userID string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO sessions (token, user_id, created_at)
VALUES (?, ?, ?)
`, token, userID, time.Now().Unix())
	return err
}

func (s *Store) GetUserByToken(ctx context.Context, token string) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT u.id, u.username, u.password_hash, u.discord_id, u.avatar, u.banner, u.bio, u.location, u.website, u.role, u.created_at
FROM sessions s
JOIN users u ON u.id = s.user_id
WHERE s.token = ?
`, token)
	return scanUser(row)
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return err
}

func (s *Store) GetUserStats(ctx context.Context, userID string) (model.UserStats, error) {
	stats := model.UserStats{RecentPosts: []model.PostSummary{}}

	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE user_id = ?`, userID)
	if err := row.Scan(&stats.PostsCount); err != nil {
		return stats, err
	}

	// Likes given and comments written live inside the JSON columns, so
	// every row is scanned and decoded.
	for _, table := range []string{"videos", "pics", "posts"} {
		rows, err := s.db.QueryContext(ctx, `SELECT likes, comments FROM `+table)
		if err != nil {
			return stats, err
		}
		for rows.Next() {
			var likesRaw, commentsRaw sql.NullString
			if err := rows.Scan(&likesRaw, &commentsRaw); err != nil {
				rows.Close()
				return stats, err
			}
			if content.Contains(content.DecodeLikes(likesRaw.String), userID) {
				stats.LikesCount++
			}
			if comments, err := content.DecodeComments(commentsRaw.String); err == nil {
				for _, c := range comments {
					if c.UserID == userID {
						stats.CommentsCount++
					}
				}
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return stats, err
		}
		rows.Close()
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, title, created_at FROM posts WHERE user_id = ? ORDER BY created_at DESC LIMIT 5
`, userID)
	if err != nil {
		return stats, err
	}
	defer rows.Close()
	for rows.Next() {
		var p model.PostSummary
		var created int64
		if err := rows.Scan(&p.ID, &p.Title, &created); err != nil {
			return stats, err
		}
		p.CreatedAt = time.Unix(created, 0)
		stats.RecentPosts = append(stats.RecentPosts, p)
	}
	return stats, rows.Err()
}

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	var passwordHash, discordID, avatar, banner, bio, location, website, role sql.NullString
	var created int64
	if err := row.Scan(&u.ID, &u.Username, &passwordHash, &discordID, &avatar, &banner, &bio, &location, &website, &role, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, store.ErrNotFound
		}
		return model.User{}, err
	}
	u.PasswordHash = passwordHash.String
	u.DiscordID = discordID.String
	u.Avatar = avatar.String
	u.Banner = banner.String
	u.Bio = bio.String
	u.Location = location.String
	u.Website = website.String
	u.Role = role.String
	u.CreatedAt = time.Unix(created, 0)
	return u, nil
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}
