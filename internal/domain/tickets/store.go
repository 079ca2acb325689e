package tickets

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hrms/internal/platform/db"
)

type StoreAPI interface {
	Get(ctx context.Context, id int64) (Ticket, error)
	Count(ctx context.Context, filter Filter) (int, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]Ticket, error)
	Create(ctx context.Context, t Ticket) (int64, error)
	SetStatus(ctx context.Context, id int64, from, to string) error
	Assign(ctx context.Context, id int64, assigneeID int64) error
	AddComment(ctx context.Context, ticketID, authorID int64, body string) (int64, error)
	Comments(ctx context.Context, ticketID int64) ([]Comment, error)
	ActiveUser(ctx context.Context, userID int64) (bool, error)
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

const ticketColumns = `
    t.id, t.number, t.subject, t.description, t.category, t.priority, t.status,
    t.requester_id, rq.email, t.assignee_id, COALESCE(asg.email, ''),
    t.resolved_at, t.closed_at, t.created_at, t.updated_at`

const ticketFrom = `
    FROM tickets t
    JOIN users rq ON rq.id = t.requester_id
    LEFT JOIN users asg ON asg.id = t.assignee_id`

func scanTicket(row pgx.Row) (Ticket, error) {
	var t Ticket
	err := row.Scan(&t.ID, &t.Number, &t.Subject, &t.Description, &t.Category, &t.Priority, &t.Status,
		&t.RequesterID, &t.RequesterName, &t.AssigneeID, &t.AssigneeName,
		&t.ResolvedAt, &t.ClosedAt, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func ticketWhere(filter Filter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if filter.RequesterID > 0 {
		add("t.requester_id = $%d", filter.RequesterID)
	}
	if filter.AssigneeID > 0 {
		add("t.assignee_id = $%d", filter.AssigneeID)
	}
	if filter.Status != "" {
		add("t.status = $%d", filter.Status)
	}
	if filter.Priority != "" {
		add("t.priority = $%d", filter.Priority)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *Store) Get(ctx context.Context, id int64) (Ticket, error) {
	t, err := scanTicket(s.DB.QueryRow(ctx, "SELECT "+ticketColumns+ticketFrom+" WHERE t.id = $1", id))
	if db.IsNoRows(err) {
		return Ticket{}, ErrNotFound
	}
	return t, err
}

func (s *Store) Count(ctx context.Context, filter Filter) (int, error) {
	where, args := ticketWhere(filter)
	var total int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(*) FROM tickets t"+where, args...).Scan(&total)
	return total, err
}

func (s *Store) List(ctx context.Context, filter Filter, limit, offset int) ([]Ticket, error) {
	where, args := ticketWhere(filter)
	args = append(args, limit, offset)
	rows, err := s.DB.Query(ctx, "SELECT "+ticketColumns+ticketFrom+where+fmt.Sprintf(`
    ORDER BY CASE t.priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END,
             t.created_at DESC
    LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) Create(ctx context.Context, t Ticket) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO tickets (number, subject, description, category, priority, status, requester_id)
    VALUES ($1, $2, $3, $4, $5, $6, $7)
    RETURNING id
  `, t.Number, t.Subject, t.Description, t.Category, t.Priority, t.Status, t.RequesterID).Scan(&id)
	return id, err
}

// SetStatus moves the ticket only if it is still in from. Resolution and
// closing timestamps follow the target status.
func (s *Store) SetStatus(ctx context.Context, id int64, from, to string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE tickets
    SET status = $3,
        resolved_at = CASE WHEN $3 = 'resolved' THEN now() WHEN $3 = 'in_progress' THEN NULL ELSE resolved_at END,
        closed_at = CASE WHEN $3 = 'closed' THEN now() ELSE closed_at END,
        updated_at = now()
    WHERE id = $1 AND status = $2
  `, id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (s *Store) Assign(ctx context.Context, id int64, assigneeID int64) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE tickets SET assignee_id = $2, updated_at = now()
    WHERE id = $1 AND status <> 'closed'
  `, id, assigneeID)
	if db.IsForeignKeyViolation(err) {
		return ErrInvalidAssignee
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrClosed
	}
	return nil
}

func (s *Store) AddComment(ctx context.Context, ticketID, authorID int64, body string) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO ticket_comments (ticket_id, author_id, body) VALUES ($1, $2, $3) RETURNING id
  `, ticketID, authorID, body).Scan(&id)
	if err != nil {
		return 0, err
	}
	if _, err := s.DB.Exec(ctx, "UPDATE tickets SET updated_at = now() WHERE id = $1", ticketID); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) Comments(ctx context.Context, ticketID int64) ([]Comment, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT c.id, c.ticket_id, c.author_id, u.email, c.body, c.created_at
    FROM ticket_comments c
    JOIN users u ON u.id = c.author_id
    WHERE c.ticket_id = $1
    ORDER BY c.created_at, c.id
  `, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.TicketID, &c.AuthorID, &c.AuthorName, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) ActiveUser(ctx context.Context, userID int64) (bool, error) {
	var active bool
	err := s.DB.QueryRow(ctx, "SELECT is_active FROM users WHERE id = $1", userID).Scan(&active)
	if db.IsNoRows(err) {
		return false, nil
	}
	return active, err
}
