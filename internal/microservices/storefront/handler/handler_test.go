package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafeteria-storefront/internal/common/logger"
	"cafeteria-storefront/internal/connections/telegram"
	"cafeteria-storefront/internal/domain"
	"cafeteria-storefront/internal/menu"
	notifyservice "cafeteria-storefront/internal/microservices/notificator/service"
	orderrepo "cafeteria-storefront/internal/microservices/order/repository"
	"cafeteria-storefront/internal/repository"
	"cafeteria-storefront/internal/session"
	"cafeteria-storefront/internal/settings"
	"cafeteria-storefront/internal/worker"
)

type botAPI struct {
	mu       sync.Mutex
	status   int
	messages []string
}

func (b *botAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	b.mu.Lock()
	b.messages = append(b.messages, body.Text)
	status := b.status
	b.mu.Unlock()
	w.WriteHeader(status)
}

func (b *botAPI) setStatus(code int) {
	b.mu.Lock()
	b.status = code
	b.mu.Unlock()
}

func (b *botAPI) last() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.messages[len(b.messages)-1]
}

func (b *botAPI) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages)
}

type env struct {
	router  http.Handler
	bot     *botAPI
	channel *settings.Channel
}

func newEnv(t *testing.T) *env {
	t.Helper()
	lg := logger.New("handler-test")
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	bot := &botAPI{status: http.StatusOK}
	botSrv := httptest.NewServer(bot)
	t.Cleanup(botSrv.Close)

	bg := worker.New(lg)
	go func() { _ = bg.Run(ctx) }()

	kv := repository.NewMemoryKVRepository()
	channel := settings.NewChannel(settings.NewKVBackend(kv), settings.NewMemoryBroker(), bg.Port("admin-settings"),
		"letmein", settings.Default(""), lg)
	channel.Start(ctx)

	sessions := session.NewManager(session.Deps{
		Catalog:  menu.Default(),
		Gate:     channel,
		History:  orderrepo.NewHistoryRepository(kv),
		Relay:    telegram.New(telegram.Config{APIURL: botSrv.URL, BotToken: "t", ChatID: "c"}),
		Worker:   bg,
		Currency: "€",
		Notify:   notifyservice.Config{Location: time.UTC},
		Logger:   lg,
	}, time.Hour)

	assets := bg.Assets(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>cafeteria</html>")
	}))

	router := Router(New(Deps{
		Catalog:       menu.Default(),
		Sessions:      sessions,
		Settings:      channel,
		Assets:        assets,
		MaxConcurrent: 10,
		Logger:        lg,
		Now:           func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) },
	}))
	return &env{router: router, bot: bot, channel: channel}
}

func (e *env) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, httptest.NewRequest(method, path, rd))
	return rec
}

func (e *env) openSession(t *testing.T) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/sessions", domain.OpenSessionRequest{NotificationsAPI: true, CurrentPermission: "granted"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp domain.SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	assert.True(t, resp.NotificationsOn)
	return resp.SessionID
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func itemID(t *testing.T) string {
	t.Helper()
	return menu.Default().Items()[0].ID
}

func TestMenu(t *testing.T) {
	e := newEnv(t)

	all := decodeBody[struct {
		Items []domain.MenuItem `json:"items"`
	}](t, e.do(t, http.MethodGet, "/api/menu", nil))
	assert.Len(t, all.Items, len(menu.Default().Items()))

	drinks := decodeBody[struct {
		Items []domain.MenuItem `json:"items"`
	}](t, e.do(t, http.MethodGet, "/api/menu?category=Drinks", nil))
	require.NotEmpty(t, drinks.Items)
	for _, it := range drinks.Items {
		assert.Equal(t, domain.CategoryDrinks, it.Category)
	}

	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodGet, "/api/menu?category=Brunch", nil).Code)

	cats := decodeBody[map[string]any](t, e.do(t, http.MethodGet, "/api/menu/categories", nil))
	assert.Equal(t, "Lunch", cats["current"])
}

func TestCartAndCheckout(t *testing.T) {
	e := newEnv(t)
	sid := e.openSession(t)
	base := "/api/sessions/" + sid

	rec := e.do(t, http.MethodPost, base+"/cart/items", domain.AddCartItemRequest{ItemID: itemID(t)})
	require.Equal(t, http.StatusOK, rec.Code)
	c := decodeBody[domain.CartResponse](t, rec)
	require.NotNil(t, c.Accepted)
	assert.True(t, *c.Accepted)
	assert.Equal(t, 1, c.ItemCount)

	qty := 3
	c = decodeBody[domain.CartResponse](t, e.do(t, http.MethodPatch, base+"/cart/items/"+itemID(t), domain.UpdateCartItemRequest{Quantity: &qty}))
	assert.Equal(t, 3, c.ItemCount)

	d := decodeBody[domain.DiscountResponse](t, e.do(t, http.MethodGet, base+"/discount?code=staff", nil))
	assert.Equal(t, 50, d.Percent)

	rec = e.do(t, http.MethodPost, base+"/checkout", domain.CheckoutRequest{CustomerName: "Ana", PickupTime: "23:59", DiscountCode: "STAFF"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	out := decodeBody[domain.CheckoutResponse](t, rec)
	assert.Equal(t, 50, out.Order.DiscountPercent)
	assert.Equal(t, 1, e.bot.count())
	assert.Contains(t, e.bot.last(), "*New Order from Ana*")

	assert.Zero(t, decodeBody[domain.CartResponse](t, e.do(t, http.MethodGet, base+"/cart", nil)).ItemCount)

	orders := decodeBody[struct {
		Orders []domain.OrderRecord `json:"orders"`
	}](t, e.do(t, http.MethodGet, base+"/orders", nil))
	require.Len(t, orders.Orders, 1)
	assert.Equal(t, out.Order.ID, orders.Orders[0].ID)

	assert.Equal(t, http.StatusNoContent, e.do(t, http.MethodDelete, base+"/orders/"+out.Order.ID+"/reminder", nil).Code)
	assert.Equal(t, http.StatusNoContent, e.do(t, http.MethodDelete, base, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, base+"/cart", nil).Code)
}

func TestCheckoutErrors(t *testing.T) {
	e := newEnv(t)
	sid := e.openSession(t)
	base := "/api/sessions/" + sid
	e.do(t, http.MethodPost, base+"/cart/items", domain.AddCartItemRequest{ItemID: itemID(t)})

	rec := e.do(t, http.MethodPost, base+"/checkout", domain.CheckoutRequest{PickupTime: "12:00"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	problem := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "validation_error", problem["type"])
	assert.Zero(t, e.bot.count())

	e.bot.setStatus(http.StatusInternalServerError)
	rec = e.do(t, http.MethodPost, base+"/checkout", domain.CheckoutRequest{CustomerName: "Ana", PickupTime: "12:00"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "order failed, try again", decodeBody[map[string]any](t, rec)["detail"])
	assert.Equal(t, 1, decodeBody[domain.CartResponse](t, e.do(t, http.MethodGet, base+"/cart", nil)).ItemCount)

	rec = httptest.NewRecorder()
	e.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, base+"/checkout", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownSessionAndItem(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/sessions/nope/cart", nil).Code)

	sid := e.openSession(t)
	rec := e.do(t, http.MethodPost, "/api/sessions/"+sid+"/cart/items", domain.AddCartItemRequest{ItemID: "caviar"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminClosesCafeteria(t *testing.T) {
	e := newEnv(t)
	sid := e.openSession(t)

	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodPost, "/api/admin/login", domain.AdminLoginRequest{Password: "guess"}).Code)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/api/admin/login", domain.AdminLoginRequest{Password: "letmein"}).Code)

	closed, msg := false, "Back at 14:00"
	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodPut, "/api/admin/settings", domain.AdminSettingsRequest{Password: "guess", IsOpen: &closed}).Code)
	rec := e.do(t, http.MethodPut, "/api/admin/settings", domain.AdminSettingsRequest{Password: "letmein", IsOpen: &closed, Message: &msg})
	require.Equal(t, http.StatusOK, rec.Code)

	pub := decodeBody[map[string]any](t, e.do(t, http.MethodGet, "/api/settings", nil))
	assert.Equal(t, false, pub["is_open"])
	assert.Equal(t, msg, pub["message"])

	rec = e.do(t, http.MethodPost, "/api/sessions/"+sid+"/cart/items", domain.AddCartItemRequest{ItemID: itemID(t)})
	require.Equal(t, http.StatusOK, rec.Code)
	c := decodeBody[domain.CartResponse](t, rec)
	require.NotNil(t, c.Accepted)
	assert.False(t, *c.Accepted)
	assert.Equal(t, msg, c.Notice)
	assert.Zero(t, c.ItemCount)
}

func TestNotificationPermission(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/api/sessions", domain.OpenSessionRequest{NotificationsAPI: true})
	sid := decodeBody[domain.SessionResponse](t, rec).SessionID

	st := decodeBody[domain.NotificationStatusResponse](t, e.do(t, http.MethodGet, "/api/sessions/"+sid+"/notifications", nil))
	assert.Equal(t, "default", st.Permission)
	assert.True(t, st.Registered)

	st = decodeBody[domain.NotificationStatusResponse](t, e.do(t, http.MethodPost, "/api/sessions/"+sid+"/notifications/permission", domain.PermissionRequest{Permission: "granted"}))
	assert.Equal(t, "granted", st.Permission)
}

func TestHealthz(t *testing.T) {
	lg := logger.New("handler-test")
	broker := settings.NewMemoryBroker()
	var failing bool
	storage := func(context.Context) error {
		if failing {
			return errors.New("connection refused")
		}
		return nil
	}

	router := Router(New(Deps{
		Logger: lg,
		Health: map[string]HealthCheck{"broker": broker.Ping, "storage": storage},
	}))
	get := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		return rec
	}

	rec := get()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	failing = true
	rec = get()
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","failed":{"storage":"connection refused"}}`, rec.Body.String())
}

func TestMiscRoutes(t *testing.T) {
	e := newEnv(t)

	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/healthz", nil).Code)

	rec := e.do(t, http.MethodGet, "/orders/abc-123", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/?order=abc-123", rec.Header().Get("Location"))

	rec = e.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cafeteria")
}

func TestWebsocketRelay(t *testing.T) {
	e := newEnv(t)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	sidA, sidB := e.openSession(t), e.openSession(t)
	dial := func(sid string) *websocket.Conn {
		u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/" + sid + "/ws"
		conn, _, err := websocket.DefaultDialer.Dial(u, nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })
		return conn
	}
	read := func(conn *websocket.Conn) domain.WorkerMessage {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
		var msg domain.WorkerMessage
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	a, b := dial(sidA), dial(sidB)
	assert.Equal(t, domain.MsgAdminSettingsUpdate, read(a).Type)
	assert.Equal(t, domain.MsgAdminSettingsUpdate, read(b).Type)

	require.Eventually(t, func() bool {
		return e.channel.IsOpen()
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, a.WriteJSON(domain.WorkerMessage{Type: domain.MsgAdminSettingsChanged, Settings: &domain.AdminSettings{IsOpen: false, Message: "forged"}}))

	for _, conn := range []*websocket.Conn{a, b} {
		msg := read(conn)
		assert.Equal(t, domain.MsgAdminSettingsUpdate, msg.Type)
		data, ok := msg.Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, true, data["is_open"], "broadcast carries the live settings")
	}
}
