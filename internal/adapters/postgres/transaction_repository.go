package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kevin07696/stripe-payment-service/internal/domain"
	"github.com/kevin07696/stripe-payment-service/internal/domain/ports"
)

const transactionColumns = `id::text, payment_method, action, entity_class, entity_identifier,
	amount, currency, reference, successful, active, source_transaction_id::text, idempotency_key,
	request, response, transaction_options, created_at, updated_at`

// TransactionRepository implements ports.TransactionRepository with pgx
type TransactionRepository struct {
	db ports.DBPort
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db ports.DBPort) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// executor falls back to the pool when no transaction is supplied
func (r *TransactionRepository) executor(db ports.DBTX) ports.DBTX {
	if db != nil {
		return db
	}
	return r.db.GetDB()
}

// Create inserts a new transaction
func (r *TransactionRepository) Create(ctx context.Context, db ports.DBTX, t *domain.PaymentTransaction) error {
	amount, err := decimalToPgNumeric(t.Amount)
	if err != nil {
		return err
	}
	sourceID, err := nullUUID(t.SourceTransactionID)
	if err != nil {
		return fmt.Errorf("source transaction: %w", err)
	}
	request, err := marshalJSONB(t.Request)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	response, err := marshalJSONB(t.Response)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	options, err := marshalJSONB(t.TransactionOptions)
	if err != nil {
		return fmt.Errorf("marshal transaction options: %w", err)
	}

	_, err = r.executor(db).Exec(ctx, `
		INSERT INTO payment_transactions (
			id, payment_method, action, entity_class, entity_identifier, amount, currency,
			reference, successful, active, source_transaction_id, idempotency_key,
			request, response, transaction_options, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		t.ID, t.PaymentMethod, string(t.Action), t.EntityClass, t.EntityIdentifier, amount, t.Currency,
		nullText(t.Reference), t.Successful, t.Active, sourceID, nullTextPtr(t.IdempotencyKey),
		request, response, options, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	return nil
}

// Update persists the fields executors change
func (r *TransactionRepository) Update(ctx context.Context, db ports.DBTX, t *domain.PaymentTransaction) error {
	amount, err := decimalToPgNumeric(t.Amount)
	if err != nil {
		return err
	}
	response, err := marshalJSONB(t.Response)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	options, err := marshalJSONB(t.TransactionOptions)
	if err != nil {
		return fmt.Errorf("marshal transaction options: %w", err)
	}

	t.UpdatedAt = time.Now().UTC()
	tag, err := r.executor(db).Exec(ctx, `
		UPDATE payment_transactions
		SET action = $2, amount = $3, reference = $4, successful = $5, active = $6,
			response = $7, transaction_options = $8, updated_at = $9
		WHERE id = $1`,
		t.ID, string(t.Action), amount, nullText(t.Reference), t.Successful, t.Active,
		response, options, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update transaction %s: %w", t.ID, domain.ErrTransactionNotFound)
	}

	return nil
}

// GetByID retrieves a transaction by its ID
func (r *TransactionRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*domain.PaymentTransaction, error) {
	return r.getOne(ctx, db, `SELECT `+transactionColumns+` FROM payment_transactions WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves a transaction and locks the row
func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, db ports.DBTX, id string) (*domain.PaymentTransaction, error) {
	return r.getOne(ctx, db, `SELECT `+transactionColumns+` FROM payment_transactions WHERE id = $1 FOR UPDATE`, id)
}

// GetByIdempotencyKey retrieves a transaction by its idempotency key
func (r *TransactionRepository) GetByIdempotencyKey(ctx context.Context, db ports.DBTX, key string) (*domain.PaymentTransaction, error) {
	return r.getOne(ctx, db, `SELECT `+transactionColumns+` FROM payment_transactions WHERE idempotency_key = $1`, key)
}

// FindByReference returns transactions holding a gateway reference, newest first
func (r *TransactionRepository) FindByReference(ctx context.Context, db ports.DBTX, filter ports.TransactionFilter) ([]*domain.PaymentTransaction, error) {
	var (
		conditions = []string{"reference = $1"}
		args       = []interface{}{filter.Reference}
	)

	if filter.PaymentMethod != "" {
		args = append(args, filter.PaymentMethod)
		conditions = append(conditions, fmt.Sprintf("payment_method = $%d", len(args)))
	}
	if len(filter.Actions) > 0 {
		actions := make([]string, len(filter.Actions))
		for i, a := range filter.Actions {
			actions[i] = string(a)
		}
		args = append(args, actions)
		conditions = append(conditions, fmt.Sprintf("action = ANY($%d)", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)))
	}
	if filter.Successful != nil {
		args = append(args, *filter.Successful)
		conditions = append(conditions, fmt.Sprintf("successful = $%d", len(args)))
	}

	query := `SELECT ` + transactionColumns + ` FROM payment_transactions WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY created_at DESC, id FOR UPDATE`

	return r.getMany(ctx, db, query, args...)
}

// ListBySource returns the transactions that depend on sourceID, oldest first
func (r *TransactionRepository) ListBySource(ctx context.Context, db ports.DBTX, sourceID string) ([]*domain.PaymentTransaction, error) {
	return r.getMany(ctx, db, `SELECT `+transactionColumns+` FROM payment_transactions
		WHERE source_transaction_id = $1 ORDER BY created_at, id`, sourceID)
}

// ListByEntity returns every transaction of a payable entity, oldest first
func (r *TransactionRepository) ListByEntity(ctx context.Context, db ports.DBTX, entityClass, entityIdentifier string) ([]*domain.PaymentTransaction, error) {
	return r.getMany(ctx, db, `SELECT `+transactionColumns+` FROM payment_transactions
		WHERE entity_class = $1 AND entity_identifier = $2 ORDER BY created_at, id`, entityClass, entityIdentifier)
}

// ListExpiringAuthorizations returns open authorizations created before createdBefore
func (r *TransactionRepository) ListExpiringAuthorizations(ctx context.Context, db ports.DBTX, paymentMethods []string, createdBefore time.Time, limit int32) ([]*domain.PaymentTransaction, error) {
	if len(paymentMethods) == 0 {
		return nil, nil
	}
	return r.getMany(ctx, db, `SELECT `+transactionColumns+` FROM payment_transactions
		WHERE action = 'authorize' AND successful = TRUE AND active = TRUE
			AND payment_method = ANY($1) AND created_at <= $2
		ORDER BY created_at, id
		LIMIT $3`, paymentMethods, createdBefore, limit)
}

func (r *TransactionRepository) getOne(ctx context.Context, db ports.DBTX, query string, args ...interface{}) (*domain.PaymentTransaction, error) {
	t, err := scanTransaction(r.executor(db).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (r *TransactionRepository) getMany(ctx context.Context, db ports.DBTX, query string, args ...interface{}) ([]*domain.PaymentTransaction, error) {
	rows, err := r.executor(db).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var result []*domain.PaymentTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	return result, nil
}

func scanTransaction(row pgx.Row) (*domain.PaymentTransaction, error) {
	var (
		t                           domain.PaymentTransaction
		action                      string
		amount                      pgtype.Numeric
		reference                   pgtype.Text
		sourceID                    pgtype.Text
		idempotencyKey              pgtype.Text
		request, response, options []byte
	)

	err := row.Scan(
		&t.ID, &t.PaymentMethod, &action, &t.EntityClass, &t.EntityIdentifier,
		&amount, &t.Currency, &reference, &t.Successful, &t.Active, &sourceID, &idempotencyKey,
		&request, &response, &options, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Action = domain.Action(action)
	t.Reference = reference.String
	t.SourceTransactionID = textPtr(sourceID)
	t.IdempotencyKey = textPtr(idempotencyKey)
	t.Currency = strings.TrimSpace(t.Currency)

	if t.Amount, err = pgNumericToDecimal(amount); err != nil {
		return nil, err
	}
	if t.Request, err = unmarshalJSONB(request); err != nil {
		return nil, fmt.Errorf("unmarshal request: %w", err)
	}
	if t.Response, err = unmarshalJSONB(response); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if t.TransactionOptions, err = unmarshalJSONB(options); err != nil {
		return nil, fmt.Errorf("unmarshal transaction options: %w", err)
	}

	return &t, nil
}

// WebhookEventRepository implements ports.WebhookEventRepository with pgx
type WebhookEventRepository struct {
	db ports.DBPort
}

// NewWebhookEventRepository creates a new webhook event repository
func NewWebhookEventRepository(db ports.DBPort) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

// MarkProcessed records the event and returns false if it was already recorded
func (r *WebhookEventRepository) MarkProcessed(ctx context.Context, db ports.DBTX, eventID, eventType, paymentMethod string) (bool, error) {
	if db == nil {
		db = r.db.GetDB()
	}

	tag, err := db.Exec(ctx, `
		INSERT INTO stripe_webhook_events (event_id, event_type, payment_method)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id) DO NOTHING`,
		eventID, eventType, paymentMethod,
	)
	if err != nil {
		return false, fmt.Errorf("record webhook event: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}
