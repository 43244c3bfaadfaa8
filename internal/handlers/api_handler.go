package handlers

import (
	"net/http"

	"sales_sync/internal/breaker"
	"sales_sync/internal/models"
	"sales_sync/internal/pubsub"
	"sales_sync/internal/services"

	"github.com/gin-gonic/gin"
)

// APIHandler is the thin HTTP surface the (external) presentation
// layer consumes. All engine semantics live in the services.
type APIHandler struct {
	sync     *services.SyncService
	identity *services.IdentityService
	orders   *services.OrderService
	stock    *services.StockService
	priority *services.PriorityService
	dedup    *services.DedupService
	settings *services.SettingsService
	brk      *breaker.Breaker
	events   *pubsub.Events
}

func NewAPIHandler(
	sync *services.SyncService,
	identity *services.IdentityService,
	orders *services.OrderService,
	stock *services.StockService,
	priority *services.PriorityService,
	dedup *services.DedupService,
	settings *services.SettingsService,
	brk *breaker.Breaker,
	events *pubsub.Events,
) *APIHandler {
	return &APIHandler{
		sync:     sync,
		identity: identity,
		orders:   orders,
		stock:    stock,
		priority: priority,
		dedup:    dedup,
		settings: settings,
		brk:      brk,
		events:   events,
	}
}

func (h *APIHandler) GetCustomers(c *gin.Context) {
	c.JSON(http.StatusOK, h.sync.Customers.Snapshot())
}

func (h *APIHandler) ResolveCustomer(c *gin.Context) {
	var req struct {
		Phone   string `json:"phone"`
		Address string `json:"address"`
		ID      string `json:"id"`
		Name    string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	customer, err := h.identity.Resolve(req.Phone, req.Address, req.ID, req.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if customer == nil {
		c.JSON(http.StatusOK, gin.H{"found": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"found": true, "customer": customer})
}

func (h *APIHandler) GetProducts(c *gin.Context) {
	c.JSON(http.StatusOK, h.sync.Products.Snapshot())
}

func (h *APIHandler) AdjustStock(c *gin.Context) {
	var req struct {
		Delta    int     `json:"delta"`
		UnitCost float64 `json:"unit_cost"`
		Note     string  `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	var info *services.ImportInfo
	if req.Delta > 0 {
		info = &services.ImportInfo{UnitCost: req.UnitCost, Note: req.Note}
	}
	product, err := h.stock.AdjustStock(c.Request.Context(), c.Param("id"), req.Delta, info)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *APIHandler) GetOrders(c *gin.Context) {
	c.JSON(http.StatusOK, h.sync.Orders.Snapshot())
}

// GetCustomerOrders returns one customer's order history.
func (h *APIHandler) GetCustomerOrders(c *gin.Context) {
	orders, err := h.orders.ForCustomer(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GetBatchOrders returns the orders of one delivery batch.
func (h *APIHandler) GetBatchOrders(c *gin.Context) {
	orders, err := h.orders.InBatch(c.Param("batch"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *APIHandler) SaveOrder(c *gin.Context) {
	var order models.Order
	if err := c.ShouldBindJSON(&order); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if order.CustomerName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "customer_name is required"})
		return
	}

	if err := h.orders.SaveOrder(c.Request.Context(), &order); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *APIHandler) UpdateOrderStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *APIHandler) SetOrderPayment(c *gin.Context) {
	var req struct {
		Method   string `json:"method"`
		Verified bool   `json:"verified"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	order, err := h.orders.SetPayment(c.Request.Context(), c.Param("id"), req.Method, req.Verified)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *APIHandler) RemindOrder(c *gin.Context) {
	order, err := h.orders.MarkReminded(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *APIHandler) DeleteOrder(c *gin.Context) {
	if err := h.orders.DeleteOrder(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// LearnRoute takes the realized visiting order as a list of order ids.
func (h *APIHandler) LearnRoute(c *gin.Context) {
	var req struct {
		OrderIDs []string `json:"order_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	snapshot := h.sync.Orders.Snapshot()
	byID := make(map[string]models.Order, len(snapshot))
	for _, o := range snapshot {
		byID[o.ID] = o
	}
	// Preserve the requested visiting order; unknown ids are skipped.
	ordered := make([]models.Order, 0, len(req.OrderIDs))
	for _, id := range req.OrderIDs {
		if o, ok := byID[id]; ok {
			ordered = append(ordered, o)
		}
	}

	adjusted, err := h.priority.LearnRouteOrder(c.Request.Context(), ordered)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"adjusted": adjusted})
}

func (h *APIHandler) MergeCustomers(c *gin.Context) {
	merged, err := h.dedup.MergeByPhone(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"merged": merged})
}

func (h *APIHandler) SplitCustomers(c *gin.Context) {
	created, err := h.dedup.SplitByNameCollision(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": created})
}

func (h *APIHandler) RecalculateStock(c *gin.Context) {
	fixed, err := h.dedup.RecalculateStock(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"corrected": fixed})
}

func (h *APIHandler) GetMode(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"online": h.brk.Available()})
}

func (h *APIHandler) GetCurrentUser(c *gin.Context) {
	name, err := h.settings.CurrentUser()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name})
}

func (h *APIHandler) SetCurrentUser(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if err := h.settings.SetCurrentUser(req.Name); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": req.Name})
}

// MarkNotificationRead relays the read signal to the notification
// collaborator over the event bus. An empty id marks all read.
func (h *APIHandler) MarkNotificationRead(c *gin.Context) {
	var req struct {
		ID string `json:"id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	h.events.NotificationsRead.Publish(req.ID)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
