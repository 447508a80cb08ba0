package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/weeklymint/nft-auction/internal/model"
    "github.com/weeklymint/nft-auction/internal/utils"
)

// UserRepo provides data access to the `users` table.  Emails are
// normalized to lower case before storage and lookup.
type UserRepo struct{ DB *sql.DB }

// NewUserRepo returns a new UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user with a bcrypt-hashed password and returns the
// generated ID.  A duplicate email is reported as ErrEmailExists (MySQL
// error 1062 on the unique index).
func (r *UserRepo) Create(ctx context.Context, email, password, role string, walletAddress *string, cost int) (uint64, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    hash, err := utils.HashPassword(password, cost)
    if err != nil {
        return 0, err
    }
    res, err := r.DB.ExecContext(ctx,
        "INSERT INTO users (email, password_hash, role, wallet_address) VALUES (?,?,?,?)",
        email, hash, role, walletAddress)
    if err != nil {
        if strings.Contains(strings.ToLower(err.Error()), "1062") {
            return 0, ErrEmailExists
        }
        return 0, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return 0, err
    }
    return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.  sql.ErrNoRows is
// returned when the email is unknown.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    return r.getOne(ctx, "SELECT id,email,password_hash,role,wallet_address,is_active,created_at,updated_at FROM users WHERE email=? LIMIT 1", email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
    return r.getOne(ctx, "SELECT id,email,password_hash,role,wallet_address,is_active,created_at,updated_at FROM users WHERE id=? LIMIT 1", id)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg interface{}) (model.User, error) {
    var (
        u      model.User
        wallet sql.NullString
    )
    err := r.DB.QueryRowContext(ctx, q, arg).Scan(
        &u.ID, &u.Email, &u.PasswordHash, &u.Role, &wallet,
        &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
    if wallet.Valid {
        w := wallet.String
        u.WalletAddress = &w
    }
    return u, err
}
