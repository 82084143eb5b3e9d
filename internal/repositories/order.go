package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"invitation-platform/internal/models"
)

// OrderRepository handles order data operations
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// OrderSearchFilters represents filters for order search
type OrderSearchFilters struct {
	UserID   int
	Status   models.OrderStatus
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
	Offset   int
	SortBy   string // "created_at", "total_amount", "status"
	SortDesc bool
}

// Create creates a new order with its item snapshots in one transaction
func (r *OrderRepository) Create(req *models.OrderCreateRequest) (*models.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Generate unique order number (retry if collision)
	orderNumber := models.GenerateOrderNumber()
	for i := 0; i < 5; i++ {
		var exists bool
		err = tx.QueryRow("SELECT EXISTS(SELECT 1 FROM orders WHERE order_number = $1)", orderNumber).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("failed to check order number uniqueness: %w", err)
		}
		if !exists {
			break
		}
		orderNumber = models.GenerateOrderNumber()
	}

	now := time.Now()
	order := &models.Order{}

	err = tx.QueryRow(`
		INSERT INTO orders (user_id, order_number, total_amount, status, billing_email, billing_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, user_id, order_number, total_amount, status, payment_ref, billing_email, billing_name, status_reason, created_at, updated_at`,
		req.UserID,
		orderNumber,
		req.TotalAmount,
		models.OrderPending,
		req.BillingEmail,
		req.BillingName,
		now,
		now,
	).Scan(
		&order.ID,
		&order.UserID,
		&order.OrderNumber,
		&order.TotalAmount,
		&order.Status,
		&order.PaymentRef,
		&order.BillingEmail,
		&order.BillingName,
		&order.StatusReason,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	for _, item := range req.Items {
		row := tx.QueryRow(`
			INSERT INTO order_items (order_id, event_title, event_city, event_date, package_tier, invite_count,
				additional_cards, gate_supervisors, extra_hours, expedited_delivery, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id`,
			order.ID,
			item.EventTitle,
			item.EventCity,
			item.EventDate,
			item.Selection.PackageTier,
			item.Selection.InviteCount,
			item.Selection.AdditionalCards,
			item.Selection.GateSupervisors,
			item.Selection.ExtraHours,
			item.Selection.ExpeditedDelivery,
			item.LineTotal,
		)
		stored := *item
		if err := row.Scan(&stored.ID); err != nil {
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}
		stored.OrderID = order.ID
		order.Items = append(order.Items, &stored)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order creation: %w", err)
	}

	return order, nil
}

// GetByID retrieves an order by ID, including its item snapshots
func (r *OrderRepository) GetByID(id int) (*models.Order, error) {
	order := &models.Order{}
	err := r.db.QueryRow(`
		SELECT id, user_id, order_number, total_amount, status, payment_ref, billing_email, billing_name, status_reason, created_at, updated_at, completed_at
		FROM orders
		WHERE id = $1`, id).Scan(
		&order.ID,
		&order.UserID,
		&order.OrderNumber,
		&order.TotalAmount,
		&order.Status,
		&order.PaymentRef,
		&order.BillingEmail,
		&order.BillingName,
		&order.StatusReason,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.CompletedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	items, err := r.getItems(order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

// GetByOrderNumber retrieves an order by its order number
func (r *OrderRepository) GetByOrderNumber(orderNumber string) (*models.Order, error) {
	var id int
	err := r.db.QueryRow("SELECT id FROM orders WHERE order_number = $1", orderNumber).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order by number: %w", err)
	}
	return r.GetByID(id)
}

func (r *OrderRepository) getItems(orderID int) ([]*models.OrderItem, error) {
	rows, err := r.db.Query(`
		SELECT id, order_id, event_title, event_city, event_date, package_tier, invite_count,
			additional_cards, gate_supervisors, extra_hours, expedited_delivery, line_total
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	var items []*models.OrderItem
	for rows.Next() {
		item := &models.OrderItem{}
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.EventTitle,
			&item.EventCity,
			&item.EventDate,
			&item.Selection.PackageTier,
			&item.Selection.InviteCount,
			&item.Selection.AdditionalCards,
			&item.Selection.GateSupervisors,
			&item.Selection.ExtraHours,
			&item.Selection.ExpeditedDelivery,
			&item.LineTotal,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		item.Selection.EventCity = item.EventCity
		items = append(items, item)
	}

	return items, rows.Err()
}

// ProcessOrderCompletion flips a pending order to completed and materializes
// one event per order item, all in one transaction. The status update is a
// conditional write keyed on the current status, so a retried webhook that
// races a prior delivery finds zero affected rows and creates nothing: the
// returned applied flag is false and the caller treats the call as a no-op.
func (r *OrderRepository) ProcessOrderCompletion(orderID int, paymentRef string) (bool, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	result, err := tx.Exec(`
		UPDATE orders
		SET status = $2, payment_ref = $3, updated_at = $4, completed_at = $4
		WHERE id = $1 AND status = $5`,
		orderID, models.OrderCompleted, paymentRef, now, models.OrderPending)
	if err != nil {
		return false, fmt.Errorf("failed to update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Not pending anymore (or missing); create no events.
		return false, nil
	}

	var ownerID int
	err = tx.QueryRow("SELECT user_id FROM orders WHERE id = $1", orderID).Scan(&ownerID)
	if err != nil {
		return false, fmt.Errorf("failed to get order owner: %w", err)
	}

	rows, err := tx.Query(`
		SELECT id, event_title, event_city, event_date, package_tier, invite_count
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`, orderID)
	if err != nil {
		return false, fmt.Errorf("failed to get order items: %w", err)
	}

	type itemRow struct {
		id          int
		title       string
		city        string
		date        time.Time
		tier        models.PackageTier
		inviteCount int
	}
	var items []itemRow
	for rows.Next() {
		var it itemRow
		if err := rows.Scan(&it.id, &it.title, &it.city, &it.date, &it.tier, &it.inviteCount); err != nil {
			rows.Close()
			return false, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("error iterating order items: %w", err)
	}

	for _, it := range items {
		_, err = tx.Exec(`
			INSERT INTO events (order_id, order_item_id, owner_id, title, city, date, package_tier, invite_count,
				status, approval_status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`,
			orderID, it.id, ownerID, it.title, it.city, it.date, it.tier, it.inviteCount,
			models.EventActive, models.ApprovalPending, now)
		if err != nil {
			return false, fmt.Errorf("failed to create event for order item %d: %w", it.id, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit order completion: %w", err)
	}

	return true, nil
}

// MarkTerminal flips a pending order to failed or cancelled with an optional
// reason. Conditional on the pending status; applied is false if the order
// had already left pending.
func (r *OrderRepository) MarkTerminal(orderID int, status models.OrderStatus, reason string) (bool, error) {
	if status != models.OrderFailed && status != models.OrderCancelled {
		return false, fmt.Errorf("status %s is not a terminal failure status", status)
	}

	result, err := r.db.Exec(`
		UPDATE orders
		SET status = $2, status_reason = $3, updated_at = $4
		WHERE id = $1 AND status = $5`,
		orderID, status, reason, time.Now(), models.OrderPending)
	if err != nil {
		return false, fmt.Errorf("failed to update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// Search searches for orders with filters and pagination
func (r *OrderRepository) Search(filters OrderSearchFilters) ([]*models.Order, int, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	if filters.UserID > 0 {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIndex))
		args = append(args, filters.UserID)
		argIndex++
	}

	if filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, filters.Status)
		argIndex++
	}

	if filters.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIndex))
		args = append(args, *filters.DateFrom)
		argIndex++
	}

	if filters.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argIndex))
		args = append(args, *filters.DateTo)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	orderBy := "ORDER BY created_at DESC"
	if filters.SortBy != "" {
		direction := "ASC"
		if filters.SortDesc {
			direction = "DESC"
		}
		switch filters.SortBy {
		case "created_at", "total_amount", "status":
			orderBy = fmt.Sprintf("ORDER BY %s %s", filters.SortBy, direction)
		}
	}

	if filters.Limit <= 0 {
		filters.Limit = 20
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM orders %s", whereClause)
	var total int
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to get order count: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, order_number, total_amount, status, payment_ref, billing_email, billing_name, status_reason, created_at, updated_at, completed_at
		FROM orders
		%s
		%s
		LIMIT $%d OFFSET $%d`,
		whereClause, orderBy, argIndex, argIndex+1)

	args = append(args, filters.Limit, filters.Offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order := &models.Order{}
		err := rows.Scan(
			&order.ID,
			&order.UserID,
			&order.OrderNumber,
			&order.TotalAmount,
			&order.Status,
			&order.PaymentRef,
			&order.BillingEmail,
			&order.BillingName,
			&order.StatusReason,
			&order.CreatedAt,
			&order.UpdatedAt,
			&order.CompletedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, total, nil
}

// GetExpiredOrders retrieves pending orders older than the given duration
func (r *OrderRepository) GetExpiredOrders(expirationDuration time.Duration) ([]*models.Order, error) {
	expirationTime := time.Now().Add(-expirationDuration)

	rows, err := r.db.Query(`
		SELECT id, user_id, order_number, total_amount, status, payment_ref, billing_email, billing_name, status_reason, created_at, updated_at, completed_at
		FROM orders
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC`, models.OrderPending, expirationTime)
	if err != nil {
		return nil, fmt.Errorf("failed to get expired orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order := &models.Order{}
		err := rows.Scan(
			&order.ID,
			&order.UserID,
			&order.OrderNumber,
			&order.TotalAmount,
			&order.Status,
			&order.PaymentRef,
			&order.BillingEmail,
			&order.BillingName,
			&order.StatusReason,
			&order.CreatedAt,
			&order.UpdatedAt,
			&order.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expired order: %w", err)
		}
		orders = append(orders, order)
	}

	return orders, rows.Err()
}

// GetOrderStatistics retrieves order counts and revenue, optionally per user
func (r *OrderRepository) GetOrderStatistics(userID *int) (map[string]interface{}, error) {
	whereClause := ""
	var args []interface{}
	if userID != nil {
		whereClause = "WHERE user_id = $1"
		args = append(args, *userID)
	}

	query := fmt.Sprintf(`
		SELECT
			COUNT(*) as total_orders,
			COUNT(CASE WHEN status = 'completed' THEN 1 END) as completed_orders,
			COUNT(CASE WHEN status = 'pending' THEN 1 END) as pending_orders,
			COUNT(CASE WHEN status = 'failed' THEN 1 END) as failed_orders,
			COUNT(CASE WHEN status = 'cancelled' THEN 1 END) as cancelled_orders,
			COALESCE(SUM(CASE WHEN status = 'completed' THEN total_amount END), 0) as total_revenue
		FROM orders
		%s`, whereClause)

	var totalOrders, completedOrders, pendingOrders, failedOrders, cancelledOrders, totalRevenue int
	err := r.db.QueryRow(query, args...).Scan(
		&totalOrders,
		&completedOrders,
		&pendingOrders,
		&failedOrders,
		&cancelledOrders,
		&totalRevenue,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get order statistics: %w", err)
	}

	return map[string]interface{}{
		"total_orders":     totalOrders,
		"completed_orders": completedOrders,
		"pending_orders":   pendingOrders,
		"failed_orders":    failedOrders,
		"cancelled_orders": cancelledOrders,
		"total_revenue":    totalRevenue,
	}, nil
}
