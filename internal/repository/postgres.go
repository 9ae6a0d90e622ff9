// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/bnpl-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserNotFound возвращается, если пользователь не найден.
var (
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailExists возвращается при попытке создать пользователя с уже занятым email.
	ErrEmailExists = errors.New("email already registered")
)

// TransactionFilter задаёт необязательные фильтры выборки транзакций.
type TransactionFilter struct {
	Start    *time.Time
	End      *time.Time
	Merchant string
	Category string
	Limit    int
	Offset   int
}

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Ping проверяет доступность БД.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *PostgresRepository) GetUserByID(ctx context.Context, userID string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT user_id, name, email, registration_date, risk_segment
		 FROM users WHERE user_id = $1`,
		userID,
	)

	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.RegistrationDate, &u.RiskSegment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

// UserWithCount дополняет пользователя количеством его транзакций.
type UserWithCount struct {
	model.User
	TransactionCount int
}

// ListUsers возвращает всех пользователей с количеством транзакций.
func (r *PostgresRepository) ListUsers(ctx context.Context) ([]UserWithCount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT u.user_id, u.name, u.email, u.registration_date, u.risk_segment,
		        COUNT(t.transaction_id)
		 FROM users u
		 LEFT JOIN transactions t ON t.user_id = u.user_id
		 GROUP BY u.user_id
		 ORDER BY u.registration_date`,
	)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	var res []UserWithCount
	for rows.Next() {
		var u UserWithCount
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.RegistrationDate, &u.RiskSegment, &u.TransactionCount); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		res = append(res, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateUser создаёт нового пользователя.
func (r *PostgresRepository) CreateUser(ctx context.Context, u *model.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (user_id, name, email, registration_date, risk_segment)
		 VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Name, u.Email, u.RegistrationDate, u.RiskSegment,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", ErrEmailExists, u.Email)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetTransactionsByUser возвращает транзакции пользователя с учётом фильтров.
func (r *PostgresRepository) GetTransactionsByUser(ctx context.Context, userID string, filter TransactionFilter) ([]model.Transaction, error) {
	query := `SELECT transaction_id, user_id, merchant_id, category, gmv_amount,
	                 coupon_used, payment_mode, return_flag, transaction_timestamp
	          FROM transactions
	          WHERE user_id = $1`
	args := []any{userID}

	if filter.Start != nil {
		args = append(args, *filter.Start)
		query += fmt.Sprintf(" AND transaction_timestamp >= $%d", len(args))
	}
	if filter.End != nil {
		args = append(args, *filter.End)
		query += fmt.Sprintf(" AND transaction_timestamp <= $%d", len(args))
	}
	if filter.Merchant != "" {
		args = append(args, filter.Merchant)
		query += fmt.Sprintf(" AND merchant_id = $%d", len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}

	query += " ORDER BY transaction_timestamp DESC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var res []model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.MerchantID, &t.Category, &t.GMVAmount,
			&t.CouponUsed, &t.PaymentMode, &t.ReturnFlag, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		res = append(res, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// AddTransaction сохраняет новую транзакцию пользователя.
func (r *PostgresRepository) AddTransaction(ctx context.Context, t *model.Transaction) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO transactions (transaction_id, user_id, merchant_id, category, gmv_amount,
		                           coupon_used, payment_mode, return_flag, transaction_timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.UserID, t.MerchantID, t.Category, t.GMVAmount,
		t.CouponUsed, t.PaymentMode, t.ReturnFlag, t.Timestamp,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return fmt.Errorf("%w: %s", ErrUserNotFound, t.UserID)
		}
		return fmt.Errorf("add transaction: %w", err)
	}
	return nil
}
