package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/record-archive/internal/access"
	"github.com/hongminglow/record-archive/internal/models"
	"github.com/hongminglow/record-archive/internal/models/dto"
	"github.com/hongminglow/record-archive/internal/storage"
)

func TestCreateOrder_PendingByDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "stores", models.Record{"id": "s1", "owner_user_id": "usr_a"})

	order, err := f.svc.CreateOrder(ctx, "s1", []map[string]any{{"product_id": "p1", "qty": 2}}, customerC)
	require.NoError(t, err)

	assert.Equal(t, StatusPending, order.String("status"))
	assert.Equal(t, "usr_a", order.String("owner_user_id"))
	assert.Equal(t, "usr_c", order.String("customer_user_id"))
	assert.Regexp(t, `^ord_[0-9a-f]{12}$`, order.ID())

	events := f.store.Find(ctx, "events", map[string]any{"kind": "order.created"})
	require.Len(t, events, 1)
	assert.Equal(t, map[string]any{"order_id": order.ID(), "status": "pending"}, events[0]["payload"])

	owned, err := f.svc.FindNotifications(ctx, nil, ownerA)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "New order", owned[0].String("title"))
	assert.False(t, owned[0].Bool("seen"))
}

func TestCreateOrder_AutoApprove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "stores", models.Record{"id": "s1"})

	_, err := f.svc.PutSettings(ctx, map[string]any{"order_auto_approve": true}, adminID)
	require.NoError(t, err)

	order, err := f.svc.CreateOrder(ctx, "s1", nil, customerC)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, order.String("status"))
	assert.NotContains(t, order, "owner_user_id")
	assert.Empty(t, f.store.List(ctx, "notifications"), "ownerless stores notify nobody")
}

func TestCreateOrder_UnknownStore(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateOrder(context.Background(), "missing", nil, customerC)
	assert.ErrorIs(t, err, ErrInvalidReference)
	assert.Empty(t, f.store.List(context.Background(), "orders"))
}

func TestApproveReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "stores", models.Record{"id": "s1", "owner_user_id": "usr_a"})

	order, err := f.svc.CreateOrder(ctx, "s1", nil, customerC)
	require.NoError(t, err)

	_, err = f.svc.ApproveOrder(ctx, order.ID(), customerC)
	assert.ErrorIs(t, err, access.ErrForbidden)
	_, err = f.svc.ApproveOrder(ctx, order.ID(), ownerB)
	assert.ErrorIs(t, err, access.ErrForbidden)
	_, err = f.svc.ApproveOrder(ctx, "ord_missing", ownerA)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	first, err := f.svc.ApproveOrder(ctx, order.ID(), ownerA)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, first.String("status"))

	second, err := f.svc.ApproveOrder(ctx, order.ID(), ownerA)
	require.NoError(t, err)
	assert.Greater(t, second.Int64("approved_at"), first.Int64("approved_at"), "repeat approve re-stamps")

	customerNotes, err := f.svc.FindNotifications(ctx, nil, customerC)
	require.NoError(t, err)
	require.Len(t, customerNotes, 2)
	assert.Equal(t, "Order approved", customerNotes[0].String("title"))

	assert.Len(t, f.store.Find(ctx, "events", map[string]any{"kind": "order.approved"}), 2)
}

func TestRejectPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "stores", models.Record{"id": "s1"})

	order, err := f.svc.CreateOrder(ctx, "s1", nil, customerC)
	require.NoError(t, err)

	rejected, err := f.svc.RejectOrder(ctx, order.ID(), adminID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.String("status"))
	assert.True(t, rejected.Has("rejected_at"))
	assert.False(t, rejected.Has("approved_at"))

	stored, err := f.store.Get(ctx, "orders", order.ID())
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, stored.String("status"))
	assert.Len(t, f.store.Find(ctx, "events", map[string]any{"kind": "order.rejected"}), 1)
}

func TestNotificationVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seed(t, "notifications", models.Record{"id": "broadcast", "title": "all", "seen": false, "created_at": 100})
	f.seed(t, "notifications", models.Record{"id": "for_c", "user_id": "usr_c", "seen": false, "created_at": 300})
	f.seed(t, "notifications", models.Record{"id": "for_a", "user_id": "usr_a", "seen": false, "created_at": 200})

	for _, caller := range []*models.Identity{adminID, ownerA, customerC, idfCustomr} {
		items, err := f.svc.FindNotifications(ctx, map[string]any{}, caller)
		require.NoError(t, err)
		assert.Contains(t, recordIDs(items), "broadcast", caller.Role)
	}

	items, err := f.svc.FindNotifications(ctx, nil, customerC)
	require.NoError(t, err)
	assert.Equal(t, []string{"for_c", "broadcast"}, recordIDs(items), "newest first")

	items, err = f.svc.FindNotifications(ctx, nil, ownerA)
	require.NoError(t, err)
	assert.Equal(t, []string{"for_a", "broadcast"}, recordIDs(items))
}

func TestMarkSeen_AllThenFind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seed(t, "notifications", models.Record{"id": "n1", "user_id": "usr_c", "seen": false, "created_at": 1})
	f.seed(t, "notifications", models.Record{"id": "n2", "seen": true, "seen_at": 5, "created_at": 2})
	f.seed(t, "notifications", models.Record{"id": "n3", "seen": false, "created_at": 3})
	f.seed(t, "notifications", models.Record{"id": "other", "user_id": "usr_a", "seen": false, "created_at": 4})

	changed, err := f.svc.MarkNotificationsSeen(ctx, nil, true, customerC)
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	items, err := f.svc.FindNotifications(ctx, map[string]any{}, customerC)
	require.NoError(t, err)
	require.Len(t, items, 3)
	for _, n := range items {
		assert.True(t, n.Bool("seen"), n.ID())
	}

	kept, err := f.store.Get(ctx, "notifications", "n2")
	require.NoError(t, err)
	assert.Equal(t, int64(5), kept.Int64("seen_at"), "already seen is not re-stamped")

	foreign, err := f.store.Get(ctx, "notifications", "other")
	require.NoError(t, err)
	assert.False(t, foreign.Bool("seen"))

	again, err := f.svc.MarkNotificationsSeen(ctx, nil, true, customerC)
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestMarkSeen_ByID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seed(t, "notifications", models.Record{"id": "n1", "user_id": "usr_c", "seen": false})
	f.seed(t, "notifications", models.Record{"id": "n2", "user_id": "usr_c", "seen": false})
	before := f.seed(t, "notifications", models.Record{"id": "x", "user_id": "usr_a", "seen": false})
	n1Before, err := f.store.Get(ctx, "notifications", "n1")
	require.NoError(t, err)

	changed, err := f.svc.MarkNotificationsSeen(ctx, []string{"n2", "x"}, false, customerC)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	n2, err := f.store.Get(ctx, "notifications", "n2")
	require.NoError(t, err)
	assert.True(t, n2.Bool("seen"))
	assert.True(t, n2.Has("seen_at"))
	assert.Equal(t, n2.Int64("seen_at"), n2.Int64(models.FieldUpdatedAt))
	assert.Greater(t, n2.Int64(models.FieldUpdatedAt), before.Int64(models.FieldUpdatedAt))

	n1, err := f.store.Get(ctx, "notifications", "n1")
	require.NoError(t, err)
	assert.Equal(t, n1Before.Int64(models.FieldUpdatedAt), n1.Int64(models.FieldUpdatedAt), "unchanged notifications keep updated_at")
}

func TestRegisterLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, dto.RegisterRequest{Email: "a@x.com", Password: "pw1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleCustomer, reg.User.Role)
	assert.Equal(t, "a", reg.User.DisplayName)
	assert.NotEmpty(t, reg.Token)

	first, err := f.svc.Login(ctx, dto.LoginRequest{Email: "a@x.com", Password: "pw1"})
	require.NoError(t, err)
	second, err := f.svc.Login(ctx, dto.LoginRequest{Email: "a@x.com", Password: "pw1"})
	require.NoError(t, err)
	assert.Equal(t, reg.Token, first.Token)
	assert.Equal(t, first.Token, second.Token)

	_, err = f.svc.Login(ctx, dto.LoginRequest{Email: "a@x.com", Password: "wrong"})
	assert.ErrorIs(t, err, access.ErrNotAuthenticated)
	assert.NotErrorIs(t, err, storage.ErrNotFound)

	_, err = f.svc.Login(ctx, dto.LoginRequest{Email: "nobody@x.com", Password: "pw1"})
	assert.ErrorIs(t, err, access.ErrBadCredentials)

	_, err = f.svc.Register(ctx, dto.RegisterRequest{Email: "a@x.com", Password: "other"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	_, err = f.svc.Register(ctx, dto.RegisterRequest{Email: "b@x.com", Password: "pw", Role: "root"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	users := f.store.List(ctx, "users")
	require.Len(t, users, 1)
	assert.Equal(t, "pw1", users[0].String("password"))
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, dto.RegisterRequest{Email: "o@x.com", Password: "pw", Role: "owner", DisplayName: "Olive"})
	require.NoError(t, err)

	id, err := f.svc.Authenticate(ctx, "Bearer "+reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, id.ID)
	assert.Equal(t, models.RoleOwner, id.Role)
	assert.Equal(t, "Olive", id.DisplayName)

	_, err = f.svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, access.ErrNotAuthenticated)
	_, err = f.svc.Authenticate(ctx, "Bearer tok_unknown")
	assert.ErrorIs(t, err, access.ErrNotAuthenticated)
}

func TestStoreWizard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := dto.WizardRequest{
		Store: map[string]any{"name": "Demo Store", "owner_user_id": "usr_b"},
		Categories: []dto.WizardCategory{{
			Name: "Burgers",
			Products: []dto.WizardProduct{
				{Name: "Classic Burger", PriceCents: 4500, StockQty: 20},
				{Name: "Cheese Burger", PriceCents: 5200, Currency: "USD"},
			},
		}},
	}
	resp, err := f.svc.StoreWizard(ctx, req, ownerA)
	require.NoError(t, err)

	assert.Equal(t, "usr_a", resp.Store.String("owner_user_id"))
	require.Len(t, resp.Categories, 1)
	require.Len(t, resp.Products, 2)
	assert.Equal(t, resp.Store.ID(), resp.Categories[0].String("store_id"))
	for _, p := range resp.Products {
		assert.Equal(t, "usr_a", p.String("owner_user_id"))
		assert.Equal(t, resp.Categories[0].ID(), p.String("category_id"))
	}
	assert.Equal(t, "ILS", resp.Products[0].String("currency"))
	assert.Equal(t, int64(3), resp.Products[0].Int64("low_stock_threshold"))
	assert.Equal(t, "USD", resp.Products[1].String("currency"))

	assert.Len(t, f.store.Find(ctx, "events", map[string]any{"kind": "store.wizard_created"}), 1)

	_, err = f.svc.StoreWizard(ctx, req, customerC)
	assert.ErrorIs(t, err, access.ErrForbidden)

	_, err = f.svc.StoreWizard(ctx, dto.WizardRequest{Categories: []dto.WizardCategory{{Name: ""}}}, ownerA)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
