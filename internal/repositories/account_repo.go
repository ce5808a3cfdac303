package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zipfood/reset-api/internal/database"
	"github.com/zipfood/reset-api/internal/models"
)

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{pool: db.Pool}
}

// rowScanner covers both pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanAccountRow handles nullable fields and populates an Account model
func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var account models.Account
	var email, passwordHash *string

	err := scanner.Scan(
		&account.ID, &account.Phone, &email, &passwordHash,
		&account.Name, &account.Role,
		&account.VerificationCode, &account.VerificationExpires,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if email != nil {
		account.Email = *email
	}
	if passwordHash != nil {
		account.PasswordHash = *passwordHash
	}

	return &account, nil
}

const accountColumns = `id, phone, email, password_hash, name, role, verification_code, verification_expires, created_at, updated_at`

// GetByPhone looks up an account by the exact stored phone string. Callers
// try the raw input first and the normalized form second, because legacy
// rows may hold phones exactly as the user typed them at signup.
func (r *AccountRepository) GetByPhone(ctx context.Context, phone string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE phone = $1`

	return scanAccountRow(r.pool.QueryRow(ctx, query, phone))
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	return scanAccountRow(r.pool.QueryRow(ctx, query, id))
}

// SetVerificationCode stores a code and its expiry on an account. Only the
// verification columns are touched, so any code already present is
// overwritten and unrelated account fields stay intact.
func (r *AccountRepository) SetVerificationCode(ctx context.Context, accountID, code string, expiresAt time.Time) error {
	query := `
		UPDATE accounts
		SET verification_code = $2, verification_expires = $3, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, accountID, code, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to set verification code: %w", database.MapPostgresError(err))
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ClearVerificationCode nulls the verification columns (consumed or expired code).
func (r *AccountRepository) ClearVerificationCode(ctx context.Context, accountID string) error {
	query := `
		UPDATE accounts
		SET verification_code = NULL, verification_expires = NULL, updated_at = NOW()
		WHERE id = $1
	`

	if _, err := r.pool.Exec(ctx, query, accountID); err != nil {
		return fmt.Errorf("failed to clear verification code: %w", database.MapPostgresError(err))
	}
	return nil
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, accountID, passwordHash string) error {
	query := `
		UPDATE accounts
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, accountID, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", database.MapPostgresError(err))
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ClearExpiredCodes nulls every verification code whose expiry has passed.
// Used by the background sweeper; lazy checks at verification time remain
// the correctness mechanism.
func (r *AccountRepository) ClearExpiredCodes(ctx context.Context) (int64, error) {
	query := `
		UPDATE accounts
		SET verification_code = NULL, verification_expires = NULL
		WHERE verification_code IS NOT NULL AND verification_expires < NOW()
	`

	tag, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired codes: %w", database.MapPostgresError(err))
	}
	return tag.RowsAffected(), nil
}

// Create inserts an account. Phones are stored in normalized form going
// forward; the dual lookup in GetByPhone exists only for legacy rows.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}

	query := `
		INSERT INTO accounts (id, phone, email, password_hash, name, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + accountColumns

	var email, passwordHash *string
	if account.Email != "" {
		email = &account.Email
	}
	if account.PasswordHash != "" {
		passwordHash = &account.PasswordHash
	}

	return scanAccountRow(r.pool.QueryRow(ctx, query,
		account.ID, account.Phone, email, passwordHash, account.Name, account.Role))
}
