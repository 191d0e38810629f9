package web

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"cyclemap/internal/logger"
	"cyclemap/internal/view"
)

// 中文说明：
// Hub 是浏览器侧的渲染协作方：实现 view.Renderer，把全量帧 / 单元格补丁 /
// 实时价推给所有已连接的页面。新页面接入时先补发一帧全量快照。

type wireYear struct {
	Year  int    `json:"year"`
	Cycle string `json:"cycle"`
}

type pushMsg struct {
	Type  string                    `json:"type"` // full | patch | price | mtd
	Now   string                    `json:"now,omitempty"`
	Years []wireYear                `json:"years,omitempty"`
	Cells map[string]view.CellState `json:"cells,omitempty"`
	Value float64                   `json:"value,omitempty"`
}

type hubClient struct {
	send chan []byte
}

// Hub 浏览器推送中心
type Hub struct {
	mu        sync.Mutex
	clients   map[*hubClient]struct{}
	upgrader  websocket.Upgrader
	lastFull  []byte
	lastCells map[string]view.CellState
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*hubClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// 单机自用页面，不校验 Origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func fullPayload(f view.Frame, cells map[string]view.CellState) []byte {
	years := make([]wireYear, 0, len(f.YearRows))
	for _, y := range f.YearRows {
		years = append(years, wireYear{Year: y.Year, Cycle: y.Cycle.Key})
	}
	return marshal(pushMsg{Type: "full", Now: f.NowMonthKey, Years: years, Cells: cells})
}

func (h *Hub) RenderFull(f view.Frame) {
	cells := view.Cells(f)
	payload := fullPayload(f, cells)

	h.mu.Lock()
	h.lastFull = payload
	h.lastCells = cells
	h.broadcastLocked(payload)
	h.mu.Unlock()
}

func (h *Hub) PatchCells(f view.Frame) {
	cells := view.Cells(f)

	// 补丁也要刷新接入快照，迟接入的页面才能拿到含补丁的最新全量帧；
	// 广播在锁内完成，保证客户端收到的消息顺序与状态推进一致
	h.mu.Lock()
	diff := view.DiffCells(h.lastCells, cells)
	h.lastCells = cells
	h.lastFull = fullPayload(f, cells)
	if len(diff) > 0 {
		h.broadcastLocked(marshal(pushMsg{Type: "patch", Cells: diff}))
	}
	h.mu.Unlock()
}

func (h *Hub) RenderSpotPrice(price float64) {
	h.broadcast(marshal(pushMsg{Type: "price", Value: price}))
}

func (h *Hub) RenderMonthChange(pct float64) {
	h.broadcast(marshal(pushMsg{Type: "mtd", Value: pct}))
}

// Serve 升级为 WebSocket 并接入推送；先补发最近一帧全量快照
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("页面 WS 升级失败: %v", err)
		return
	}
	client := &hubClient{send: make(chan []byte, 64)}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	if h.lastFull != nil {
		client.send <- h.lastFull
	}
	h.mu.Unlock()

	go h.writePump(conn, client)
	go h.readPump(conn, client)
}

func (h *Hub) writePump(conn *websocket.Conn, c *hubClient) {
	defer conn.Close()
	for msg := range c.send {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readPump 只为感知断开；页面不上行业务消息
func (h *Hub) readPump(conn *websocket.Conn, c *hubClient) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcastLocked(msg)
}

// broadcastLocked 调用方需持有 h.mu
func (h *Hub) broadcastLocked(msg []byte) {
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// 慢消费者：丢弃本条，等待下一帧追平
		}
	}
}

func marshal(m pushMsg) []byte {
	data, err := json.Marshal(m)
	if err != nil {
		logger.Errorf("推送消息编码失败: %v", err)
		return []byte("{}")
	}
	return data
}
