package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pairpoints/pairpoints-backend/internal/services"
	"github.com/pairpoints/pairpoints-backend/pkg/streams"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const writeWait = 10 * time.Second

// StreamHandler exposes the observe operations as websocket streams. Each
// connection carries one subscription; closing the socket cancels it and no
// further snapshot is delivered.
type StreamHandler struct {
	ledgerService     *services.LedgerService
	connectionService *services.ConnectionService
	timeoutService    *services.TimeoutService
	syncManager       *services.SyncManager
	upgrader          websocket.Upgrader
	log               *logrus.Entry
}

// NewStreamHandler creates a new StreamHandler
func NewStreamHandler(ledgerService *services.LedgerService, connectionService *services.ConnectionService, timeoutService *services.TimeoutService, syncManager *services.SyncManager, logger *logrus.Logger) *StreamHandler {
	return &StreamHandler{
		ledgerService:     ledgerService,
		connectionService: connectionService,
		timeoutService:    timeoutService,
		syncManager:       syncManager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin enforcement happens at the CORS layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: logger.WithField("component", "streams"),
	}
}

// Transactions handles GET /ws/transactions: the caller's full transaction
// history, re-sent as a whole snapshot on every relevant change.
func (h *StreamHandler) Transactions(c *gin.Context) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	sub, err := h.ledgerService.ObserveTransactions(ctx, currentUserID(c))
	if err != nil {
		cancel()
		respondError(c, err)
		return
	}
	h.serve(c, ctx, cancel, sub.Done(), sub.Cancel, func(conn *websocket.Conn) bool {
		return writeNext(ctx, conn, sub, h.log)
	})
}

// Connection handles GET /ws/connection: the caller's active connection or
// null.
func (h *StreamHandler) Connection(c *gin.Context) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	sub, err := h.connectionService.ObserveConnection(ctx, currentUserID(c))
	if err != nil {
		cancel()
		respondError(c, err)
		return
	}
	h.serve(c, ctx, cancel, sub.Done(), sub.Cancel, func(conn *websocket.Conn) bool {
		return writeNext(ctx, conn, sub, h.log)
	})
}

// Timeout handles GET /ws/timeout/:connectionId: whether a cooldown is
// running for the connection.
func (h *StreamHandler) Timeout(c *gin.Context) {
	connectionID, err := primitive.ObjectIDFromHex(c.Param("connectionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid connection id"})
		return
	}
	ctx, cancel := context.WithCancel(c.Request.Context())
	sub, err := h.timeoutService.ObserveTimeoutStatus(ctx, connectionID)
	if err != nil {
		cancel()
		respondError(c, err)
		return
	}
	h.serve(c, ctx, cancel, sub.Done(), sub.Cancel, func(conn *websocket.Conn) bool {
		return writeNext(ctx, conn, sub, h.log)
	})
}

// Sync handles GET /ws/sync: the sync status machine.
func (h *StreamHandler) Sync(c *gin.Context) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	sub := h.syncManager.ObserveStatus()
	h.serve(c, ctx, cancel, sub.Done(), sub.Cancel, func(conn *websocket.Conn) bool {
		return writeNext(ctx, conn, sub, h.log)
	})
}

// serve upgrades the request and pumps snapshots until either side goes
// away. The read pump exists only to notice the peer closing.
func (h *StreamHandler) serve(c *gin.Context, ctx context.Context, cancel context.CancelFunc, done <-chan struct{}, unsubscribe func(), writeOne func(conn *websocket.Conn) bool) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		cancel()
		unsubscribe()
		return
	}
	defer conn.Close()
	defer unsubscribe()
	defer cancel()

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		default:
		}
		if !writeOne(conn) {
			return
		}
	}
}

// writeNext blocks for the next snapshot and writes it to the socket.
// Returns false when the stream, the context, or the socket is finished.
func writeNext[T any](ctx context.Context, conn *websocket.Conn, sub *streams.Subscription[T], log *logrus.Entry) bool {
	select {
	case v, ok := <-sub.C():
		if !ok {
			return false
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(gin.H{"data": v}); err != nil {
			log.WithError(err).Debug("websocket write failed")
			return false
		}
		return true
	case <-sub.Done():
		return false
	case <-ctx.Done():
		return false
	}
}
