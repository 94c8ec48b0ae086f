package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite" // sqlite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS game_servers (
	id          TEXT PRIMARY KEY,
	guild_id    TEXT NOT NULL,
	name        TEXT NOT NULL,
	resource_id TEXT NOT NULL,
	game        TEXT NOT NULL,
	current_sku TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_game_servers_guild ON game_servers (guild_id);
`

// SQLiteStore is a local ServerStore for development deployments that have
// no Cosmos account.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Upsert registers or updates a game server. Used by local tooling; the bot
// itself only reads.
func (s *SQLiteStore) Upsert(ctx context.Context, server GameServer, guildID string) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO game_servers (id, guild_id, name, resource_id, game, current_sku)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		resource_id = excluded.resource_id,
		game        = excluded.game,
		current_sku = excluded.current_sku;
	`, Key(server.Name, guildID), guildID, server.Name, server.ResourceID, server.Game, server.CurrentSku)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, name, guildID string) (*GameServer, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT id, name, resource_id, game, current_sku
	FROM game_servers
	WHERE id = ? AND guild_id = ?
	`, Key(name, guildID), guildID)

	var server GameServer
	if err := row.Scan(&server.ID, &server.Name, &server.ResourceID, &server.Game, &server.CurrentSku); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &server, nil
}

func (s *SQLiteStore) List(ctx context.Context, guildID string) ([]GameServer, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, name, resource_id, game, current_sku
	FROM game_servers
	WHERE guild_id = ?
	ORDER BY name
	`, guildID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var servers []GameServer
	for rows.Next() {
		var server GameServer
		if err := rows.Scan(&server.ID, &server.Name, &server.ResourceID, &server.Game, &server.CurrentSku); err != nil {
			return nil, err
		}
		servers = append(servers, server)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return servers, nil
}
