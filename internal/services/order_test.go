package services

import (
	"errors"
	"testing"
	"time"

	"invitation-platform/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testCart(items ...models.CartItem) *models.Cart {
	cart := &models.Cart{
		Items:     items,
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}
	cart.Recalculate()
	return cart
}

func classicCartItem(subtotal int) models.CartItem {
	return models.CartItem{
		EventTitle: "Sara & Ahmed Wedding",
		EventCity:  "riyadh",
		EventDate:  time.Now().AddDate(0, 2, 0),
		Selection: models.PricingSelection{
			PackageTier: models.TierClassic,
			InviteCount: 100,
			EventCity:   "riyadh",
		},
		Subtotal: subtotal,
	}
}

func newOrderServiceFixture() (*OrderService, *fakeOrderRepo, *fakeEventRepo, *fakeNotifier) {
	eventRepo := newFakeEventRepo()
	orderRepo := newFakeOrderRepo(eventRepo)
	userRepo := newFakeUserRepo(&models.User{ID: 1, Email: "owner@example.com", Name: "Owner", Phone: "+966501234567", Role: models.RoleCustomer})
	notifier := &fakeNotifier{}
	svc := NewOrderService(orderRepo, eventRepo, userRepo, notifier, testLogger())
	return svc, orderRepo, eventRepo, notifier
}

func TestOrderService_Checkout(t *testing.T) {
	t.Run("creates pending order from priced cart", func(t *testing.T) {
		svc, _, _, _ := newOrderServiceFixture()

		cart := testCart(classicCartItem(1999))
		order, err := svc.Checkout(1, cart, &models.CheckoutRequest{
			BillingEmail: "owner@example.com",
			BillingName:  "Owner",
		})
		require.NoError(t, err)

		assert.Equal(t, models.OrderPending, order.Status)
		assert.Equal(t, 1999, order.TotalAmount)
		assert.Len(t, order.Items, 1)
		assert.Regexp(t, `^INV-\d{8}-\d{6}$`, order.OrderNumber)
	})

	t.Run("rejects stale cart subtotal", func(t *testing.T) {
		svc, _, _, _ := newOrderServiceFixture()

		cart := testCart(classicCartItem(1500)) // current price is 1999
		_, err := svc.Checkout(1, cart, &models.CheckoutRequest{
			BillingEmail: "owner@example.com",
			BillingName:  "Owner",
		})

		var validationErr *models.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "cart", validationErr.Field)
	})

	t.Run("rejects empty cart", func(t *testing.T) {
		svc, _, _, _ := newOrderServiceFixture()

		_, err := svc.Checkout(1, testCart(), &models.CheckoutRequest{
			BillingEmail: "owner@example.com",
			BillingName:  "Owner",
		})

		var validationErr *models.ValidationError
		require.ErrorAs(t, err, &validationErr)
	})

	t.Run("rejects expired cart", func(t *testing.T) {
		svc, _, _, _ := newOrderServiceFixture()

		cart := testCart(classicCartItem(1999))
		cart.ExpiresAt = time.Now().Add(-time.Minute).Unix()

		_, err := svc.Checkout(1, cart, &models.CheckoutRequest{
			BillingEmail: "owner@example.com",
			BillingName:  "Owner",
		})

		var validationErr *models.ValidationError
		require.ErrorAs(t, err, &validationErr)
	})

	t.Run("rejects cart item with invalid selection", func(t *testing.T) {
		svc, _, _, _ := newOrderServiceFixture()

		item := classicCartItem(1999)
		item.Selection.InviteCount = 150 // no such bracket

		_, err := svc.Checkout(1, testCart(item), &models.CheckoutRequest{
			BillingEmail: "owner@example.com",
			BillingName:  "Owner",
		})

		var inviteErr *models.InvalidInviteCountError
		require.ErrorAs(t, err, &inviteErr)
	})
}

func TestOrderService_Complete(t *testing.T) {
	checkout := func(t *testing.T, svc *OrderService, items ...models.CartItem) *models.Order {
		t.Helper()
		order, err := svc.Checkout(1, testCart(items...), &models.CheckoutRequest{
			BillingEmail: "owner@example.com",
			BillingName:  "Owner",
		})
		require.NoError(t, err)
		return order
	}

	t.Run("materializes one event per item", func(t *testing.T) {
		svc, _, _, notifier := newOrderServiceFixture()
		order := checkout(t, svc, classicCartItem(1999), classicCartItem(1999))

		completed, events, err := svc.Complete(order.ID, "ref-1")
		require.NoError(t, err)

		assert.Equal(t, models.OrderCompleted, completed.Status)
		require.Len(t, events, 2)
		for _, event := range events {
			assert.Equal(t, models.EventActive, event.Status)
			assert.Equal(t, models.ApprovalPending, event.ApprovalStatus)
			assert.Equal(t, models.TierClassic, event.PackageTier)
			assert.Equal(t, 100, event.InviteCount)
			assert.Equal(t, 1, event.OwnerID)
		}
		assert.Len(t, notifier.completed, 1)
	})

	t.Run("replayed completion is a no-op returning existing events", func(t *testing.T) {
		svc, orderRepo, _, notifier := newOrderServiceFixture()
		order := checkout(t, svc, classicCartItem(1999), classicCartItem(1999))

		_, first, err := svc.Complete(order.ID, "ref-1")
		require.NoError(t, err)

		_, second, err := svc.Complete(order.ID, "ref-1")
		require.NoError(t, err)

		assert.Len(t, second, len(first))
		assert.Equal(t, 1, orderRepo.completions, "events must be materialized exactly once")
		assert.Len(t, notifier.completed, 1, "completion notification must not repeat")
	})

	t.Run("completing a cancelled order fails", func(t *testing.T) {
		svc, _, _, _ := newOrderServiceFixture()
		order := checkout(t, svc, classicCartItem(1999))

		require.NoError(t, svc.Cancel(order.ID, "customer request"))

		_, _, err := svc.Complete(order.ID, "ref-1")
		var transitionErr *models.InvalidTransitionError
		require.ErrorAs(t, err, &transitionErr)
		assert.Equal(t, "cancelled", transitionErr.From)
	})

	t.Run("completing a failed order fails", func(t *testing.T) {
		svc, _, _, _ := newOrderServiceFixture()
		order := checkout(t, svc, classicCartItem(1999))

		require.NoError(t, svc.Fail(order.ID, "card declined"))

		_, _, err := svc.Complete(order.ID, "ref-1")
		var transitionErr *models.InvalidTransitionError
		require.ErrorAs(t, err, &transitionErr)
	})

	t.Run("rejects order whose stored total was altered after checkout", func(t *testing.T) {
		svc, orderRepo, eventRepo, _ := newOrderServiceFixture()
		order := checkout(t, svc, classicCartItem(1999))

		stored := orderRepo.orders[order.ID]
		stored.Items[0].LineTotal = 1
		stored.TotalAmount = 1

		_, _, err := svc.Complete(order.ID, "ref-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not derive from its package selection")
		assert.Empty(t, eventRepo.events, "no events may be minted for a tampered order")
	})

	t.Run("unknown order", func(t *testing.T) {
		svc, _, _, _ := newOrderServiceFixture()
		_, _, err := svc.Complete(999, "ref-1")
		assert.True(t, errors.Is(err, models.ErrOrderNotFound))
	})

	t.Run("notification failure does not fail completion", func(t *testing.T) {
		svc, _, eventRepo, notifier := newOrderServiceFixture()
		notifier.failSends = true
		order := checkout(t, svc, classicCartItem(1999))

		_, events, err := svc.Complete(order.ID, "ref-1")
		require.NoError(t, err)
		assert.Len(t, events, 1)
		assert.Len(t, eventRepo.events, 1)
	})
}

func TestOrderService_TerminalTransitions(t *testing.T) {
	svc, _, _, _ := newOrderServiceFixture()
	order, err := svc.Checkout(1, testCart(classicCartItem(1999)), &models.CheckoutRequest{
		BillingEmail: "owner@example.com",
		BillingName:  "Owner",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Fail(order.ID, "card declined"))

	// Terminal states reject every further transition.
	var transitionErr *models.InvalidTransitionError
	err = svc.Cancel(order.ID, "too late")
	require.ErrorAs(t, err, &transitionErr)

	err = svc.Fail(order.ID, "again")
	require.ErrorAs(t, err, &transitionErr)
}

func TestOrderService_GetOrderByID(t *testing.T) {
	svc, _, _, _ := newOrderServiceFixture()
	order, err := svc.Checkout(1, testCart(classicCartItem(1999)), &models.CheckoutRequest{
		BillingEmail: "owner@example.com",
		BillingName:  "Owner",
	})
	require.NoError(t, err)

	owner := models.Actor{User: &models.User{ID: 1, Role: models.RoleCustomer}}
	admin := models.Actor{User: &models.User{ID: 9, Role: models.RoleAdmin}}
	stranger := models.Actor{User: &models.User{ID: 2, Role: models.RoleCustomer}}

	_, err = svc.GetOrderByID(order.ID, owner)
	assert.NoError(t, err)

	_, err = svc.GetOrderByID(order.ID, admin)
	assert.NoError(t, err)

	_, err = svc.GetOrderByID(order.ID, stranger)
	var permissionErr *models.PermissionDeniedError
	assert.ErrorAs(t, err, &permissionErr)
}
