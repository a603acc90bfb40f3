package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/vanshika/debtledger/backend/internal/domain"
)

// Postgres is the pgx-backed Store.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an open connection pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// WithinTx runs fn inside a read-committed transaction. Row locks taken by
// fn serialize the balance-affecting writes on a debt.
func (s *Postgres) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&pgTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

type pgTx struct {
	tx pgx.Tx
}

type rowScanner interface {
	Scan(dest ...any) error
}

const userColumns = `u.id::text, u.code, u.display_name, u.email, COALESCE(u.telegram_chat_id, 0), u.created_at`

const debtColumns = `d.id::text, d.mode, d.creator_role, d.status, d.lender_id::text,
	COALESCE(d.borrower_id::text, ''), COALESCE(d.counterparty_name, ''), COALESCE(d.upgrade_recipient_id::text, ''),
	d.amount::text, d.currency, d.deadline, d.description, d.installment_type,
	d.created_at, d.updated_at, d.settled_at`

const installmentColumns = `i.id::text, i.debt_id::text, i.amount::text, i.due_date, i.status, i.description,
	i.last_reminded_at, i.created_at, i.updated_at`

const paymentColumns = `p.id::text, p.debt_id::text, COALESCE(p.installment_id::text, ''), p.submitter_id::text,
	p.amount::text, p.status, p.description, COALESCE(p.rejection_reason, ''), p.submitted_at, p.reviewed_at`

const witnessColumns = `w.id::text, w.debt_id::text, w.user_id::text, w.status, w.confirmed_at, w.created_at`

const notificationColumns = `n.id::text, n.user_id::text, n.type, COALESCE(n.debt_id::text, ''), n.message, n.params, n.created_at, n.read_at`

func (t *pgTx) InsertUser(ctx context.Context, u domain.User) error {
	var chat any
	if u.TelegramChatID != 0 {
		chat = u.TelegramChatID
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO users(id, code, display_name, email, telegram_chat_id, created_at)
		VALUES($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Code, u.DisplayName, u.Email, chat, u.CreatedAt)
	if err != nil {
		return mapWriteError(fmt.Errorf("insert user: %w", err))
	}
	return nil
}

func (t *pgTx) GetUser(ctx context.Context, id string) (domain.User, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1::uuid`, id)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapReadError(fmt.Errorf("get user %s: %w", id, err))
	}
	return u, nil
}

func (t *pgTx) GetUserByCode(ctx context.Context, code string) (domain.User, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.code = $1`, code)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapReadError(fmt.Errorf("get user by code: %w", err))
	}
	return u, nil
}

func (t *pgTx) InsertDebt(ctx context.Context, d domain.Debt) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO debts(id, mode, creator_role, status, lender_id, borrower_id, counterparty_name,
			upgrade_recipient_id, amount, currency, deadline, description, installment_type,
			created_at, updated_at, settled_at)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10, $11, $12, $13, $14, $15, $16)
	`, d.ID, string(d.Mode), string(d.CreatorRole), string(d.Status), d.LenderID,
		nullable(d.BorrowerID), nullable(d.CounterpartyName), nullable(d.UpgradeRecipientID),
		domain.FormatMoney(d.Amount), d.Currency, d.Deadline, d.Description, string(d.InstallmentType),
		d.CreatedAt, d.UpdatedAt, d.SettledAt)
	if err != nil {
		return mapWriteError(fmt.Errorf("insert debt: %w", err))
	}
	return nil
}

func (t *pgTx) GetDebt(ctx context.Context, id string) (domain.Debt, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+debtColumns+` FROM debts d WHERE d.id = $1::uuid`, id)
	d, err := scanDebt(row)
	if err != nil {
		return domain.Debt{}, mapReadError(fmt.Errorf("get debt %s: %w", id, err))
	}
	return d, nil
}

func (t *pgTx) LockDebt(ctx context.Context, id string) (domain.Debt, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+debtColumns+` FROM debts d WHERE d.id = $1::uuid FOR UPDATE`, id)
	d, err := scanDebt(row)
	if err != nil {
		return domain.Debt{}, mapReadError(fmt.Errorf("lock debt %s: %w", id, err))
	}
	return d, nil
}

func (t *pgTx) UpdateDebt(ctx context.Context, d domain.Debt) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE debts
		SET mode = $2, creator_role = $3, status = $4, lender_id = $5, borrower_id = $6,
			counterparty_name = $7, upgrade_recipient_id = $8, description = $9,
			updated_at = $10, settled_at = $11
		WHERE id = $1
	`, d.ID, string(d.Mode), string(d.CreatorRole), string(d.Status), d.LenderID,
		nullable(d.BorrowerID), nullable(d.CounterpartyName), nullable(d.UpgradeRecipientID),
		d.Description, d.UpdatedAt, d.SettledAt)
	if err != nil {
		return mapWriteError(fmt.Errorf("update debt %s: %w", d.ID, err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update debt %s: %w", d.ID, ErrNotFound)
	}
	return nil
}

// DeleteDebt removes the debt and everything it owns in one pass.
func (t *pgTx) DeleteDebt(ctx context.Context, id string) error {
	for _, stmt := range []string{
		`DELETE FROM notifications WHERE debt_id = $1`,
		`DELETE FROM payments WHERE debt_id = $1`,
		`DELETE FROM witnesses WHERE debt_id = $1`,
		`DELETE FROM installments WHERE debt_id = $1`,
	} {
		if _, err := t.tx.Exec(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete debt %s children: %w", id, err)
		}
	}
	tag, err := t.tx.Exec(ctx, `DELETE FROM debts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete debt %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete debt %s: %w", id, ErrNotFound)
	}
	return nil
}

func (t *pgTx) ListDebts(ctx context.Context, opts ListDebtsOptions) ([]domain.Debt, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+debtColumns+`
		FROM debts d
		WHERE (d.lender_id = $1::uuid OR d.borrower_id = $1::uuid OR d.upgrade_recipient_id = $1::uuid
			OR EXISTS (SELECT 1 FROM witnesses w WHERE w.debt_id = d.id AND w.user_id = $1::uuid))
		  AND ($2 = '' OR d.status = $2)
		  AND ($3 = ''
			OR ($3 = 'lender' AND d.lender_id = $1::uuid AND (d.mode = 'mutual' OR d.creator_role = 'lender'))
			OR ($3 = 'borrower' AND ((d.mode = 'mutual' AND d.borrower_id = $1::uuid)
				OR (d.mode = 'personal' AND d.lender_id = $1::uuid AND d.creator_role = 'borrower'))))
		ORDER BY d.created_at DESC, d.id
		LIMIT $4
	`, opts.UserID, string(opts.Status), string(opts.Role), normalizeLimit(opts.Limit, 50, 200))
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	defer rows.Close()

	var out []domain.Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan debt: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (t *pgTx) ScanDebts(ctx context.Context, opts ScanDebtsOptions) ([]domain.Debt, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+debtColumns+`
		FROM debts d
		WHERE ($1 = '' OR d.mode = $1)
		  AND ($2 = '' OR d.status = $2)
		  AND ($3 = '' OR d.id::text > $3)
		ORDER BY d.id::text
		LIMIT $4
	`, string(opts.Mode), string(opts.Status), opts.AfterID, normalizeLimit(opts.Limit, 500, 5000))
	if err != nil {
		return nil, fmt.Errorf("scan debts: %w", err)
	}
	defer rows.Close()

	var out []domain.Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan debt: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (t *pgTx) InsertInstallments(ctx context.Context, items []domain.Installment) error {
	if len(items) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(`
			INSERT INTO installments(id, debt_id, amount, due_date, status, description, created_at, updated_at)
			VALUES($1, $2, $3::numeric, $4, $5, $6, $7, $8)
		`, it.ID, it.DebtID, domain.FormatMoney(it.Amount), it.DueDate, string(it.Status), it.Description, it.CreatedAt, it.UpdatedAt)
	}
	br := t.tx.SendBatch(ctx, batch)
	for range items {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert installment: %w", err)
		}
	}
	return br.Close()
}

func (t *pgTx) ListInstallments(ctx context.Context, debtID string) ([]domain.Installment, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+installmentColumns+` FROM installments i
		WHERE i.debt_id = $1::uuid
		ORDER BY i.due_date, i.id
	`, debtID)
	if err != nil {
		return nil, fmt.Errorf("list installments: %w", err)
	}
	defer rows.Close()

	var out []domain.Installment
	for rows.Next() {
		it, err := scanInstallment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan installment: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (t *pgTx) LockInstallment(ctx context.Context, id string) (domain.Installment, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+installmentColumns+` FROM installments i WHERE i.id = $1::uuid FOR UPDATE`, id)
	it, err := scanInstallment(row)
	if err != nil {
		return domain.Installment{}, mapReadError(fmt.Errorf("lock installment %s: %w", id, err))
	}
	return it, nil
}

func (t *pgTx) UpdateInstallmentStatus(ctx context.Context, id string, status domain.InstallmentStatus, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE installments SET status = $2, updated_at = $3 WHERE id = $1`, id, string(status), at)
	if err != nil {
		return fmt.Errorf("update installment %s: %w", id, err)
	}
	return nil
}

func (t *pgTx) ListDueInstallments(ctx context.Context, opts DueInstallmentsOptions) ([]DueInstallment, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+installmentColumns+`, `+debtColumns+`
		FROM installments i
		JOIN debts d ON d.id = i.debt_id
		WHERE d.status = 'active'
		  AND i.status = $1
		  AND ($2::date IS NULL OR i.due_date < $2::date)
		  AND ($3::date IS NULL OR i.due_date = $3::date)
		  AND ($4 = '' OR i.id::text > $4)
		ORDER BY i.id::text
		LIMIT $5
	`, string(opts.Status), opts.DueBefore, opts.DueOn, opts.AfterID, normalizeLimit(opts.Limit, 500, 5000))
	if err != nil {
		return nil, fmt.Errorf("list due installments: %w", err)
	}
	defer rows.Close()

	var out []DueInstallment
	for rows.Next() {
		var (
			it  domain.Installment
			d   domain.Debt
			raw installmentRow
			dr  debtRow
		)
		dest := append(raw.targets(), dr.targets()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan due installment: %w", err)
		}
		if it, err = raw.toDomain(); err != nil {
			return nil, err
		}
		if d, err = dr.toDomain(); err != nil {
			return nil, err
		}
		out = append(out, DueInstallment{Installment: it, Debt: d})
	}
	return out, rows.Err()
}

func (t *pgTx) MarkInstallmentOverdue(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE installments SET status = 'overdue', updated_at = $2
		WHERE id = $1 AND status = 'upcoming'
	`, id, at)
	if err != nil {
		return false, fmt.Errorf("mark installment %s overdue: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t *pgTx) TouchInstallmentReminder(ctx context.Context, id string, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE installments SET last_reminded_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("touch installment %s reminder: %w", id, err)
	}
	return nil
}

func (t *pgTx) InsertPayment(ctx context.Context, p domain.Payment) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO payments(id, debt_id, installment_id, submitter_id, amount, status, description,
			rejection_reason, submitted_at, reviewed_at)
		VALUES($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10)
	`, p.ID, p.DebtID, nullable(p.InstallmentID), p.SubmitterID, domain.FormatMoney(p.Amount),
		string(p.Status), p.Description, nullable(p.RejectionReason), p.SubmittedAt, p.ReviewedAt)
	if err != nil {
		return mapWriteError(fmt.Errorf("insert payment: %w", err))
	}
	return nil
}

func (t *pgTx) GetPayment(ctx context.Context, id string) (domain.Payment, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments p WHERE p.id = $1::uuid`, id)
	p, err := scanPayment(row)
	if err != nil {
		return domain.Payment{}, mapReadError(fmt.Errorf("get payment %s: %w", id, err))
	}
	return p, nil
}

func (t *pgTx) LockPayment(ctx context.Context, id string) (domain.Payment, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments p WHERE p.id = $1::uuid FOR UPDATE`, id)
	p, err := scanPayment(row)
	if err != nil {
		return domain.Payment{}, mapReadError(fmt.Errorf("lock payment %s: %w", id, err))
	}
	return p, nil
}

func (t *pgTx) UpdatePayment(ctx context.Context, p domain.Payment) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE payments SET status = $2, rejection_reason = $3, reviewed_at = $4
		WHERE id = $1
	`, p.ID, string(p.Status), nullable(p.RejectionReason), p.ReviewedAt)
	if err != nil {
		return fmt.Errorf("update payment %s: %w", p.ID, err)
	}
	return nil
}

func (t *pgTx) ListPayments(ctx context.Context, debtID string) ([]domain.Payment, error) {
	return t.queryPayments(ctx, `SELECT `+paymentColumns+` FROM payments p WHERE p.debt_id = $1::uuid ORDER BY p.submitted_at, p.id`, debtID)
}

func (t *pgTx) ListInstallmentPayments(ctx context.Context, installmentID string) ([]domain.Payment, error) {
	return t.queryPayments(ctx, `SELECT `+paymentColumns+` FROM payments p WHERE p.installment_id = $1::uuid ORDER BY p.submitted_at, p.id`, installmentID)
}

func (t *pgTx) queryPayments(ctx context.Context, query string, arg string) ([]domain.Payment, error) {
	rows, err := t.tx.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *pgTx) SumApprovedPayments(ctx context.Context, debtID string) (decimal.Decimal, error) {
	var raw string
	err := t.tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)::text FROM payments
		WHERE debt_id = $1::uuid AND status = 'approved'
	`, debtID).Scan(&raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum approved payments: %w", err)
	}
	return decimal.NewFromString(raw)
}

func (t *pgTx) InsertWitness(ctx context.Context, w domain.Witness) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO witnesses(id, debt_id, user_id, status, confirmed_at, created_at)
		VALUES($1, $2, $3, $4, $5, $6)
	`, w.ID, w.DebtID, w.UserID, string(w.Status), w.ConfirmedAt, w.CreatedAt)
	if err != nil {
		return mapWriteError(fmt.Errorf("insert witness: %w", err))
	}
	return nil
}

func (t *pgTx) ListWitnesses(ctx context.Context, debtID string) ([]domain.Witness, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+witnessColumns+` FROM witnesses w WHERE w.debt_id = $1::uuid ORDER BY w.created_at, w.id`, debtID)
	if err != nil {
		return nil, fmt.Errorf("list witnesses: %w", err)
	}
	defer rows.Close()

	var out []domain.Witness
	for rows.Next() {
		w, err := scanWitness(rows)
		if err != nil {
			return nil, fmt.Errorf("scan witness: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (t *pgTx) GetWitness(ctx context.Context, debtID, userID string) (domain.Witness, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+witnessColumns+` FROM witnesses w WHERE w.debt_id = $1::uuid AND w.user_id = $2::uuid`, debtID, userID)
	w, err := scanWitness(row)
	if err != nil {
		return domain.Witness{}, mapReadError(fmt.Errorf("get witness: %w", err))
	}
	return w, nil
}

func (t *pgTx) UpdateWitness(ctx context.Context, w domain.Witness) error {
	_, err := t.tx.Exec(ctx, `UPDATE witnesses SET status = $2, confirmed_at = $3 WHERE id = $1`, w.ID, string(w.Status), w.ConfirmedAt)
	if err != nil {
		return fmt.Errorf("update witness %s: %w", w.ID, err)
	}
	return nil
}

func (t *pgTx) InsertNotification(ctx context.Context, n domain.Notification) error {
	params := n.Params
	if params == nil {
		params = map[string]string{}
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO notifications(id, user_id, type, debt_id, message, params, created_at)
		VALUES($1, $2, $3, $4, $5, $6::jsonb, $7)
	`, n.ID, n.UserID, string(n.Type), nullable(n.DebtID), n.Message, params, n.CreatedAt)
	if err != nil {
		return mapWriteError(fmt.Errorf("insert notification: %w", err))
	}
	return nil
}

func (t *pgTx) ListNotifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+notificationColumns+` FROM notifications n
		WHERE n.user_id = $1::uuid
		ORDER BY n.created_at DESC, n.id
		LIMIT $2
	`, userID, normalizeLimit(limit, 50, 200))
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var (
			n   domain.Notification
			typ string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &typ, &n.DebtID, &n.Message, &n.Params, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if n.Type, err = domain.ParseNotificationType(typ); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (t *pgTx) MarkNotificationRead(ctx context.Context, id, userID string, at time.Time) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE notifications SET read_at = $3
		WHERE id = $1 AND user_id = $2 AND read_at IS NULL
	`, id, userID, at)
	if err != nil {
		return false, fmt.Errorf("mark notification %s read: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanUser(row rowScanner) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Code, &u.DisplayName, &u.Email, &u.TelegramChatID, &u.CreatedAt)
	return u, err
}

type debtRow struct {
	d                                 domain.Debt
	mode, role, status, amount, itype string
}

func (r *debtRow) targets() []any {
	return []any{
		&r.d.ID, &r.mode, &r.role, &r.status, &r.d.LenderID,
		&r.d.BorrowerID, &r.d.CounterpartyName, &r.d.UpgradeRecipientID,
		&r.amount, &r.d.Currency, &r.d.Deadline, &r.d.Description, &r.itype,
		&r.d.CreatedAt, &r.d.UpdatedAt, &r.d.SettledAt,
	}
}

func (r *debtRow) toDomain() (domain.Debt, error) {
	d := r.d
	var err error
	if d.Mode, err = domain.ParseMode(r.mode); err != nil {
		return domain.Debt{}, err
	}
	if d.CreatorRole, err = domain.ParseRole(r.role); err != nil {
		return domain.Debt{}, err
	}
	if d.Status, err = domain.ParseDebtStatus(r.status); err != nil {
		return domain.Debt{}, err
	}
	if d.InstallmentType, err = domain.ParseInstallmentType(r.itype); err != nil {
		return domain.Debt{}, err
	}
	if d.Amount, err = decimal.NewFromString(r.amount); err != nil {
		return domain.Debt{}, fmt.Errorf("parse debt amount: %w", err)
	}
	return d, nil
}

func scanDebt(row rowScanner) (domain.Debt, error) {
	var r debtRow
	if err := row.Scan(r.targets()...); err != nil {
		return domain.Debt{}, err
	}
	return r.toDomain()
}

type installmentRow struct {
	it             domain.Installment
	amount, status string
}

func (r *installmentRow) targets() []any {
	return []any{
		&r.it.ID, &r.it.DebtID, &r.amount, &r.it.DueDate, &r.status, &r.it.Description,
		&r.it.LastRemindedAt, &r.it.CreatedAt, &r.it.UpdatedAt,
	}
}

func (r *installmentRow) toDomain() (domain.Installment, error) {
	it := r.it
	var err error
	if it.Status, err = domain.ParseInstallmentStatus(r.status); err != nil {
		return domain.Installment{}, err
	}
	if it.Amount, err = decimal.NewFromString(r.amount); err != nil {
		return domain.Installment{}, fmt.Errorf("parse installment amount: %w", err)
	}
	return it, nil
}

func scanInstallment(row rowScanner) (domain.Installment, error) {
	var r installmentRow
	if err := row.Scan(r.targets()...); err != nil {
		return domain.Installment{}, err
	}
	return r.toDomain()
}

func scanPayment(row rowScanner) (domain.Payment, error) {
	var (
		p              domain.Payment
		amount, status string
	)
	err := row.Scan(&p.ID, &p.DebtID, &p.InstallmentID, &p.SubmitterID, &amount, &status,
		&p.Description, &p.RejectionReason, &p.SubmittedAt, &p.ReviewedAt)
	if err != nil {
		return domain.Payment{}, err
	}
	if p.Status, err = domain.ParsePaymentStatus(status); err != nil {
		return domain.Payment{}, err
	}
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return domain.Payment{}, fmt.Errorf("parse payment amount: %w", err)
	}
	return p, nil
}

func scanWitness(row rowScanner) (domain.Witness, error) {
	var (
		w      domain.Witness
		status string
	)
	if err := row.Scan(&w.ID, &w.DebtID, &w.UserID, &status, &w.ConfirmedAt, &w.CreatedAt); err != nil {
		return domain.Witness{}, err
	}
	var err error
	if w.Status, err = domain.ParseWitnessStatus(status); err != nil {
		return domain.Witness{}, err
	}
	return w, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func mapReadError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	// A malformed uuid can never match a row.
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "22P02" {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}
