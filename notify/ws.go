package notify

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"storefront/models"
	"storefront/mq"
	"storefront/utils"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// PaymentLookup loads a payment on behalf of a caller, enforcing ownership.
type PaymentLookup interface {
	Get(ctx context.Context, p models.Principal, id string) (*models.PaymentView, error)
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

const writeWait = 10 * time.Second

// PaymentSocket streams status events for one payment. The current state is
// sent as the first message so a client that connects late sees the outcome.
func PaymentSocket(hub *Hub, payments PaymentLookup) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id, err := utils.ParseID("payment", ps.ByName("paymentId"))
		if err != nil {
			utils.HandleError(w, r, err)
			return
		}
		principal := utils.GetPrincipalFromRequest(r)
		view, err := payments.Get(r.Context(), principal, id)
		if err != nil {
			utils.HandleError(w, r, err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade:", err)
			return
		}
		client := &Client{
			Conn:   conn,
			Send:   make(chan []byte, 16),
			Room:   id,
			UserID: principal.UserID,
		}
		if data, err := json.Marshal(mq.PaymentEvent(&view.Payment)); err == nil {
			client.Send <- data
		}
		if !hub.Register(client) {
			conn.Close()
			return
		}
		go writePump(client)
		go readPump(client, hub)
	}
}

func writePump(c *Client) {
	defer c.Conn.Close()
	for msg := range c.Send {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
	_ = c.Conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

// readPump discards client input and unregisters once the peer goes away.
func readPump(c *Client, hub *Hub) {
	defer func() {
		hub.Unregister(c)
		c.Conn.Close()
	}()
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
