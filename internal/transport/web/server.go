package web

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"cyclemap/internal/logger"
	"cyclemap/internal/market"
	"cyclemap/internal/view"
	"cyclemap/internal/visual"
)

// ServerConfig Web 服务依赖
type ServerConfig struct {
	Addr      string
	Symbol    string
	Hub       *Hub
	FrameFn   func(ctx context.Context) (view.Frame, error)
	RowsFn    func(ctx context.Context) ([]market.MonthRecord, error)
	Matrix    market.MatrixConfig
	SMAPeriod int
}

// Server 前台页面 + JSON 接口 + 页面推送
type Server struct {
	cfg    ServerConfig
	engine *gin.Engine
	srv    *http.Server
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = ":8686"
	}
	if cfg.Hub == nil {
		return nil, fmt.Errorf("hub 未初始化")
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	tmpl, err := template.ParseFS(Templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("解析页面模板失败: %w", err)
	}
	engine.SetHTMLTemplate(tmpl)

	staticFS, err := fs.Sub(Static, "static")
	if err != nil {
		return nil, err
	}
	engine.StaticFS("/static", http.FS(staticFS))

	s := &Server{cfg: cfg, engine: engine}
	engine.GET("/", s.handleIndex)
	engine.GET("/api/matrix", s.handleMatrix)
	engine.GET("/ws", func(c *gin.Context) { cfg.Hub.Serve(c.Writer, c.Request) })
	engine.GET("/chart", s.handleChart)
	engine.GET("/snapshot.png", s.handleSnapshot)

	s.srv = &http.Server{Addr: cfg.Addr, Handler: engine}
	return s, nil
}

func (s *Server) Addr() string { return s.cfg.Addr }

// Start 启动 HTTP 服务，ctx 取消时优雅关停
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
	}()
	logger.Infof("✓ Web 服务监听 %s", s.cfg.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Symbol": s.cfg.Symbol,
	})
}

func (s *Server) handleMatrix(c *gin.Context) {
	if s.cfg.FrameFn == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "matrix not ready"})
		return
	}
	frame, err := s.cfg.FrameFn(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, frame)
}

// handleSnapshot 用 headless Chrome 截取当前页面，便于分享
func (s *Server) handleSnapshot(c *gin.Context) {
	if err := visual.Available(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	addr := s.cfg.Addr
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	png, err := visual.CapturePNG(c.Request.Context(), "http://"+addr+"/", 15*time.Second)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
