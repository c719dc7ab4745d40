package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/thehashrocket/kirk-analytics/internal/models"
)

// PostgresAccountStore implements AccountStore on PostgreSQL. Postgres holds
// the account graph only; fact rows live in the warehouse.
type PostgresAccountStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresAccountStore creates a PostgreSQL-backed account store.
func NewPostgresAccountStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresAccountStore {
	return &PostgresAccountStore{pool: pool, logger: logger}
}

func (s *PostgresAccountStore) GetClient(ctx context.Context, id string) (*models.Client, error) {
	query := `
		SELECT id, name, rep_id, created_at
		FROM clients
		WHERE id = $1`

	var c models.Client
	err := s.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.RepID, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying client: %w", err)
	}
	return &c, nil
}

func (s *PostgresAccountStore) UpsertClient(ctx context.Context, c *models.Client) error {
	query := `
		INSERT INTO clients (id, name, rep_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = $2, rep_id = $3`

	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if _, err := s.pool.Exec(ctx, query, c.ID, c.Name, c.RepID, createdAt); err != nil {
		return fmt.Errorf("upserting client: %w", err)
	}
	return nil
}

func (s *PostgresAccountStore) GetAccount(ctx context.Context, id string) (*models.ChannelAccount, error) {
	query := `
		SELECT id, channel, name, external_ref, created_at
		FROM channel_accounts
		WHERE id = $1`

	var a models.ChannelAccount
	err := s.pool.QueryRow(ctx, query, id).Scan(&a.ID, &a.Channel, &a.Name, &a.ExternalRef, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying account: %w", err)
	}
	return &a, nil
}

func (s *PostgresAccountStore) UpsertAccount(ctx context.Context, a *models.ChannelAccount) error {
	query := `
		INSERT INTO channel_accounts (id, channel, name, external_ref, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET channel = $2, name = $3, external_ref = $4`

	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if _, err := s.pool.Exec(ctx, query, a.ID, a.Channel, a.Name, a.ExternalRef, createdAt); err != nil {
		return fmt.Errorf("upserting account: %w", err)
	}
	return nil
}

func (s *PostgresAccountStore) Bind(ctx context.Context, clientID, accountID string) error {
	query := `
		INSERT INTO client_accounts (client_id, account_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`

	if _, err := s.pool.Exec(ctx, query, clientID, accountID); err != nil {
		return fmt.Errorf("binding account: %w", err)
	}
	return nil
}

func (s *PostgresAccountStore) IsBound(ctx context.Context, clientID, accountID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM client_accounts
			WHERE client_id = $1 AND account_id = $2
		)`

	var bound bool
	if err := s.pool.QueryRow(ctx, query, clientID, accountID).Scan(&bound); err != nil {
		return false, fmt.Errorf("checking binding: %w", err)
	}
	return bound, nil
}

func (s *PostgresAccountStore) AccountsForClient(ctx context.Context, clientID string) ([]*models.ChannelAccount, error) {
	query := `
		SELECT a.id, a.channel, a.name, a.external_ref, a.created_at
		FROM channel_accounts a
		JOIN client_accounts ca ON ca.account_id = a.id
		WHERE ca.client_id = $1
		ORDER BY a.id`

	rows, err := s.pool.Query(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("querying client accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.ChannelAccount
	for rows.Next() {
		var a models.ChannelAccount
		if err := rows.Scan(&a.ID, &a.Channel, &a.Name, &a.ExternalRef, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning account row: %w", err)
		}
		accounts = append(accounts, &a)
	}
	return accounts, rows.Err()
}

func (s *PostgresAccountStore) AccountVisibleToRep(ctx context.Context, repID, accountID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM client_accounts ca
			JOIN clients c ON c.id = ca.client_id
			WHERE ca.account_id = $1 AND c.rep_id = $2
		)`

	var visible bool
	if err := s.pool.QueryRow(ctx, query, accountID, repID).Scan(&visible); err != nil {
		return false, fmt.Errorf("checking rep visibility: %w", err)
	}
	return visible, nil
}

func (s *PostgresAccountStore) Preferences(ctx context.Context, clientID string) ([]*models.Preference, error) {
	query := `
		SELECT client_id, channel, account_id
		FROM preferences
		WHERE client_id = $1
		ORDER BY channel`

	rows, err := s.pool.Query(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("querying preferences: %w", err)
	}
	defer rows.Close()

	var prefs []*models.Preference
	for rows.Next() {
		var p models.Preference
		if err := rows.Scan(&p.ClientID, &p.Channel, &p.AccountID); err != nil {
			return nil, fmt.Errorf("scanning preference row: %w", err)
		}
		prefs = append(prefs, &p)
	}
	return prefs, rows.Err()
}

func (s *PostgresAccountStore) UpsertPreference(ctx context.Context, p *models.Preference) error {
	query := `
		INSERT INTO preferences (client_id, channel, account_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (client_id, channel) DO UPDATE SET account_id = $3`

	if _, err := s.pool.Exec(ctx, query, p.ClientID, p.Channel, p.AccountID); err != nil {
		return fmt.Errorf("upserting preference: %w", err)
	}
	return nil
}
