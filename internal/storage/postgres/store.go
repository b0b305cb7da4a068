package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wallscope/internal/errs"
	"wallscope/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS tokens (
	address    TEXT    NOT NULL,
	chain_id   BIGINT  NOT NULL,
	name       TEXT    NOT NULL DEFAULT '',
	symbol     TEXT    NOT NULL DEFAULT '',
	decimals   INT     NOT NULL,
	PRIMARY KEY (address, chain_id)
);

CREATE TABLE IF NOT EXISTS pools (
	address         TEXT    NOT NULL,
	chain_id        BIGINT  NOT NULL,
	dex             TEXT    NOT NULL,
	token0_address  TEXT    NOT NULL,
	token1_address  TEXT    NOT NULL,
	fee             BIGINT  NOT NULL,
	inserted_seq    BIGSERIAL,
	PRIMARY KEY (address, chain_id)
);

CREATE TABLE IF NOT EXISTS liquidity_distributions (
	token0_address  TEXT        NOT NULL,
	token1_address  TEXT        NOT NULL,
	dex             TEXT        NOT NULL,
	chain_id        BIGINT      NOT NULL,
	data            JSONB       NOT NULL,
	timestamp       TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (token0_address, token1_address, dex, chain_id)
);
`

// Store provides Postgres persistence for tokens, pools and distributions.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errs.New(errs.Config, "database url is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errs.Wrap(errs.Database, "connect", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, errs.Wrap(errs.Database, "init schema", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const upsertTokenSQL = `
	INSERT INTO tokens (address, chain_id, name, symbol, decimals)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (address, chain_id)
	DO UPDATE SET
		name = EXCLUDED.name,
		symbol = EXCLUDED.symbol,
		decimals = EXCLUDED.decimals
`

func (s *Store) UpsertToken(ctx context.Context, token model.Token) error {
	_, err := s.pool.Exec(ctx, upsertTokenSQL,
		strings.ToLower(token.Address), int64(token.ChainID), token.Name, token.Symbol, int32(token.Decimals))
	if err != nil {
		return errs.Wrap(errs.Database, "upsert token", err)
	}
	return nil
}

func (s *Store) GetToken(ctx context.Context, chainID uint64, address string) (*model.Token, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT address, chain_id, name, symbol, decimals
		FROM tokens WHERE address = $1 AND chain_id = $2
	`, strings.ToLower(address), int64(chainID))

	var token model.Token
	var decimals int32
	if err := row.Scan(&token.Address, &token.ChainID, &token.Name, &token.Symbol, &decimals); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errs.Wrap(errs.Database, "get token", err)
	}
	token.Decimals = uint8(decimals)
	return &token, nil
}

// UpsertPool writes both token rows and the pool row in one transaction.
func (s *Store) UpsertPool(ctx context.Context, pool model.Pool) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errs.Wrap(errs.Database, "begin", err)
	}
	defer tx.Rollback(ctx)

	for _, token := range []model.Token{pool.Token0, pool.Token1} {
		if _, err := tx.Exec(ctx, upsertTokenSQL,
			strings.ToLower(token.Address), int64(token.ChainID), token.Name, token.Symbol, int32(token.Decimals)); err != nil {
			return errs.Wrap(errs.Database, "upsert pool token", err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO pools (address, chain_id, dex, token0_address, token1_address, fee)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (address, chain_id)
		DO UPDATE SET
			dex = EXCLUDED.dex,
			token0_address = EXCLUDED.token0_address,
			token1_address = EXCLUDED.token1_address,
			fee = EXCLUDED.fee
	`,
		strings.ToLower(pool.Address), int64(pool.ChainID), pool.DEX,
		strings.ToLower(pool.Token0.Address), strings.ToLower(pool.Token1.Address), int64(pool.Fee))
	if err != nil {
		return errs.Wrap(errs.Database, "upsert pool", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return errs.Wrap(errs.Database, "commit", err)
	}
	return nil
}

func (s *Store) GetPool(ctx context.Context, chainID uint64, address string) (*model.Pool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT p.address, p.chain_id, p.dex, p.fee,
		       t0.address, t0.chain_id, t0.name, t0.symbol, t0.decimals,
		       t1.address, t1.chain_id, t1.name, t1.symbol, t1.decimals
		FROM pools p
		JOIN tokens t0 ON t0.address = p.token0_address AND t0.chain_id = p.chain_id
		JOIN tokens t1 ON t1.address = p.token1_address AND t1.chain_id = p.chain_id
		WHERE p.address = $1 AND p.chain_id = $2
	`, strings.ToLower(address), int64(chainID))

	pool, err := scanPool(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errs.Wrap(errs.Database, "get pool", err)
	}
	return pool, nil
}

// ListPools pages through pools of one DEX in insertion order.
func (s *Store) ListPools(ctx context.Context, dex string, chainID uint64, limit, offset int) ([]model.Pool, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT p.address, p.chain_id, p.dex, p.fee,
		       t0.address, t0.chain_id, t0.name, t0.symbol, t0.decimals,
		       t1.address, t1.chain_id, t1.name, t1.symbol, t1.decimals
		FROM pools p
		JOIN tokens t0 ON t0.address = p.token0_address AND t0.chain_id = p.chain_id
		JOIN tokens t1 ON t1.address = p.token1_address AND t1.chain_id = p.chain_id
		WHERE p.dex = $1 AND p.chain_id = $2
		ORDER BY p.inserted_seq
		LIMIT $3 OFFSET $4
	`, dex, int64(chainID), limit, offset)
	if err != nil {
		return nil, errs.Wrap(errs.Database, "list pools", err)
	}
	defer rows.Close()
	return scanPools(rows)
}

// PoolsByToken matches the token on either side of the pair.
func (s *Store) PoolsByToken(ctx context.Context, chainID uint64, address string) ([]model.Pool, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.address, p.chain_id, p.dex, p.fee,
		       t0.address, t0.chain_id, t0.name, t0.symbol, t0.decimals,
		       t1.address, t1.chain_id, t1.name, t1.symbol, t1.decimals
		FROM pools p
		JOIN tokens t0 ON t0.address = p.token0_address AND t0.chain_id = p.chain_id
		JOIN tokens t1 ON t1.address = p.token1_address AND t1.chain_id = p.chain_id
		WHERE p.chain_id = $1 AND (p.token0_address = $2 OR p.token1_address = $2)
		ORDER BY p.inserted_seq
	`, int64(chainID), strings.ToLower(address))
	if err != nil {
		return nil, errs.Wrap(errs.Database, "pools by token", err)
	}
	defer rows.Close()
	return scanPools(rows)
}

// UpsertDistribution replaces the latest row for the four-tuple key, writing
// its token rows in the same transaction.
func (s *Store) UpsertDistribution(ctx context.Context, dist model.LiquidityDistribution) error {
	data, err := json.Marshal(dist)
	if err != nil {
		return errs.Wrap(errs.Serialization, "encode distribution", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errs.Wrap(errs.Database, "begin", err)
	}
	defer tx.Rollback(ctx)

	for _, token := range []model.Token{dist.Token0, dist.Token1} {
		if _, err := tx.Exec(ctx, upsertTokenSQL,
			strings.ToLower(token.Address), int64(token.ChainID), token.Name, token.Symbol, int32(token.Decimals)); err != nil {
			return errs.Wrap(errs.Database, "upsert distribution token", err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO liquidity_distributions (token0_address, token1_address, dex, chain_id, data, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (token0_address, token1_address, dex, chain_id)
		DO UPDATE SET data = EXCLUDED.data, timestamp = EXCLUDED.timestamp
	`,
		strings.ToLower(dist.Token0.Address), strings.ToLower(dist.Token1.Address),
		dist.DEX, int64(dist.ChainID), data, dist.Timestamp)
	if err != nil {
		return errs.Wrap(errs.Database, "upsert distribution", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return errs.Wrap(errs.Database, "commit", err)
	}
	return nil
}

func (s *Store) GetDistribution(ctx context.Context, token0, token1, dex string, chainID uint64) (*model.LiquidityDistribution, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT data FROM liquidity_distributions
		WHERE token0_address = $1 AND token1_address = $2 AND dex = $3 AND chain_id = $4
	`, strings.ToLower(token0), strings.ToLower(token1), dex, int64(chainID))

	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errs.Wrap(errs.Database, "get distribution", err)
	}

	var dist model.LiquidityDistribution
	if err := json.Unmarshal(data, &dist); err != nil {
		return nil, errs.Wrap(errs.Serialization, "decode distribution", err)
	}
	return &dist, nil
}

func (s *Store) ListDistributions(ctx context.Context, token0, token1 string, chainID uint64) ([]model.LiquidityDistribution, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT data FROM liquidity_distributions
		WHERE token0_address = $1 AND token1_address = $2 AND chain_id = $3
		ORDER BY dex
	`, strings.ToLower(token0), strings.ToLower(token1), int64(chainID))
	if err != nil {
		return nil, errs.Wrap(errs.Database, "list distributions", err)
	}
	defer rows.Close()

	var out []model.LiquidityDistribution
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, errs.Wrap(errs.Database, "scan distribution", err)
		}
		var dist model.LiquidityDistribution
		if err := json.Unmarshal(data, &dist); err != nil {
			return nil, errs.Wrap(errs.Serialization, "decode distribution", err)
		}
		out = append(out, dist)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.Database, "list distributions", err)
	}
	return out, nil
}

func scanPool(row pgx.Row) (*model.Pool, error) {
	var pool model.Pool
	var fee int64
	var dec0, dec1 int32
	err := row.Scan(
		&pool.Address, &pool.ChainID, &pool.DEX, &fee,
		&pool.Token0.Address, &pool.Token0.ChainID, &pool.Token0.Name, &pool.Token0.Symbol, &dec0,
		&pool.Token1.Address, &pool.Token1.ChainID, &pool.Token1.Name, &pool.Token1.Symbol, &dec1,
	)
	if err != nil {
		return nil, err
	}
	pool.Fee = uint32(fee)
	pool.Token0.Decimals = uint8(dec0)
	pool.Token1.Decimals = uint8(dec1)
	return &pool, nil
}

func scanPools(rows pgx.Rows) ([]model.Pool, error) {
	var out []model.Pool
	for rows.Next() {
		pool, err := scanPool(rows)
		if err != nil {
			return nil, errs.Wrap(errs.Database, "scan pool", err)
		}
		out = append(out, *pool)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.Database, "scan pools", err)
	}
	return out, nil
}
