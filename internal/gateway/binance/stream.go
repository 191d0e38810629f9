package binance

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"

	"cyclemap/internal/logger"
	"cyclemap/internal/market"
)

// 中文说明：
// 合并流客户端：一条连接同时订阅 <symbol>@trade 与 <symbol>@kline_1M。
// 非主动断开时按指数退避重连（2s 起步、30s 封顶），连接成功后退避归零。
// 任意时刻最多一条活跃连接、最多一个待触发的重连定时器。

// StreamCallbacks 事件回调；未设置的回调按 no-op 处理
type StreamCallbacks struct {
	OnTradePrice func(price float64)
	OnMonthKline func(rec market.MonthRecord)
	OnStatus     func(msg string)
	OnError      func(msg string)
}

// StreamClient 可重连的 Binance 合并流客户端
type StreamClient struct {
	cfg Config
	cb  StreamCallbacks

	mu        sync.Mutex
	conn      *websocket.Conn
	reconnect *time.Timer
	closed    bool
	bo        *backoff.Backoff
}

func NewStreamClient(cfg Config, cb StreamCallbacks) *StreamClient {
	return &StreamClient{
		cfg: cfg,
		cb:  cb,
		bo: &backoff.Backoff{
			Min:    2 * time.Second,
			Max:    30 * time.Second,
			Factor: 2,
		},
	}
}

// Start 发起首次连接（异步，不阻塞调用方）
func (c *StreamClient) Start() {
	go c.connect()
}

// Close 主动关停：取消待触发的重连、关闭连接；幂等，之后不再重连
func (c *StreamClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *StreamClient) streamURL() string {
	sym := strings.ToLower(c.cfg.Symbol)
	return fmt.Sprintf("%s/stream?streams=%s@kline_1M/%s@trade", c.cfg.WSBaseURL, sym, sym)
}

func (c *StreamClient) connect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	// 替换旧连接前先关掉，保证同一时刻只有一条活跃连接
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	session := uuid.NewString()[:8]
	url := c.streamURL()
	logger.Debugf("WS 会话 %s 连接 %s", session, url)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		logger.Debugf("WS 会话 %s 连接失败: %v", session, err)
		c.status("连接异常，准备重连...")
		c.handleDisconnect(nil)
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.bo.Reset()
	c.mu.Unlock()

	c.status("已连接")
	go c.readLoop(conn, session)
}

func (c *StreamClient) readLoop(conn *websocket.Conn, session string) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Debugf("WS 会话 %s 读取结束: %v", session, err)
			c.handleDisconnect(conn)
			return
		}
		c.handleMessage(msg)
	}
}

// handleDisconnect 非主动断开时安排一次重连。
// conn 非空时要求仍是当前连接，避免被替换的旧连接触发二次重连。
func (c *StreamClient) handleDisconnect(conn *websocket.Conn) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if conn != nil {
		if c.conn != conn {
			c.mu.Unlock()
			return
		}
		c.conn = nil
	}
	if c.reconnect != nil {
		c.mu.Unlock()
		return
	}
	delay := c.bo.Duration()
	c.reconnect = time.AfterFunc(delay, func() {
		c.mu.Lock()
		c.reconnect = nil
		c.mu.Unlock()
		c.connect()
	})
	c.mu.Unlock()

	if conn != nil {
		c.status("连接断开，重连中...")
	}
	logger.Debugf("WS %v 后重连", delay)
}

// handleMessage 解析合并流信封 {stream, data}。
// 解析失败仅回调错误并丢弃消息，不触发重连；数值非法的行情静默丢弃。
func (c *StreamClient) handleMessage(raw []byte) {
	var env struct {
		Stream string          `json:"stream"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		c.errorf("消息解析失败: %v", err)
		return
	}

	switch {
	case strings.Contains(env.Stream, "@trade"):
		var trade struct {
			Price string `json:"p"`
		}
		if err := json.Unmarshal(env.Data, &trade); err != nil {
			c.errorf("消息解析失败: %v", err)
			return
		}
		price, err := strconv.ParseFloat(trade.Price, 64)
		if err != nil || !isFinite(price) {
			return
		}
		if c.cb.OnTradePrice != nil {
			c.cb.OnTradePrice(price)
		}

	case strings.Contains(env.Stream, "@kline_1M"):
		var payload struct {
			K struct {
				OpenTime int64  `json:"t"`
				Open     string `json:"o"`
				Close    string `json:"c"`
				Final    bool   `json:"x"`
			} `json:"k"`
		}
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			c.errorf("消息解析失败: %v", err)
			return
		}
		open, err1 := strconv.ParseFloat(payload.K.Open, 64)
		close, err2 := strconv.ParseFloat(payload.K.Close, 64)
		if err1 != nil || err2 != nil || !isFinite(open) || !isFinite(close) {
			return
		}
		if c.cb.OnMonthKline != nil {
			c.cb.OnMonthKline(market.MonthRecord{
				// 月份键来自 K 线开盘时间，而非本地时钟
				MonthKey: market.MonthKeyFromMillis(payload.K.OpenTime),
				Open:     open,
				Close:    close,
				Source:   market.SourceBinanceLive,
				IsClosed: payload.K.Final,
			})
		}
	}
}

func (c *StreamClient) status(msg string) {
	if c.cb.OnStatus != nil {
		c.cb.OnStatus(msg)
	}
}

func (c *StreamClient) errorf(format string, v ...any) {
	if c.cb.OnError != nil {
		c.cb.OnError(fmt.Sprintf(format, v...))
	}
}
