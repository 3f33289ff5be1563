package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/namtrader/engine/internal/config"
	"github.com/namtrader/engine/internal/status"
	"github.com/namtrader/engine/pkg/logger"
	"go.uber.org/zap"
)

// Server читающий HTTP-обработчик статуса. Состояние берется из
// защищенного хранилища, рабочий цикл он не трогает.
type Server struct {
	config config.ServerConfig
	store  *status.Store
	http   *http.Server
}

// NewServer создает сервер статуса
func NewServer(cfg config.ServerConfig, store *status.Store) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		config: cfg,
		store:  store,
	}

	router.SetHTMLTemplate(template.Must(template.New("status").Parse(statusPage)))
	router.GET("/", s.handleStatusPage)
	router.GET("/api/status", s.handleStatusJSON)

	s.http = &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}
	return s
}

// Run запускает сервер до отмены контекста
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	logger.Info("Сервер статуса запущен", zap.String("addr", s.config.Addr))

	select {
	case err := <-errCh:
		return fmt.Errorf("ошибка сервера статуса: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

// handleStatusPage отдает HTML-страницу статуса
func (s *Server) handleStatusPage(c *gin.Context) {
	snapshot := s.store.Snapshot()

	pnlDisplay := "PNL еще не рассчитан"
	pnlColor := "green"
	pnlWidth := 0.0
	if snapshot.PnlKnown {
		pnlDisplay = fmt.Sprintf("%.2f%%", snapshot.PnlPercent)
		if snapshot.PnlPercent < 0 {
			pnlColor = "red"
		}
		pnlWidth = snapshot.PnlPercent
		if pnlWidth < 0 {
			pnlWidth = -pnlWidth
		}
		if pnlWidth > 100 {
			pnlWidth = 100
		}
	}

	c.HTML(http.StatusOK, "status", gin.H{
		"Symbol":          snapshot.Symbol,
		"Balance":         fmt.Sprintf("%.2f", snapshot.Balance),
		"EntryPrice":      fmt.Sprintf("%.2f", snapshot.EntryPrice),
		"MarkPrice":       fmt.Sprintf("%.2f", snapshot.MarkPrice),
		"PositionSide":    snapshot.PositionSide,
		"Trend":           snapshot.Trend,
		"PnlDisplay":      pnlDisplay,
		"PnlColor":        pnlColor,
		"PnlWidth":        fmt.Sprintf("%.0f", pnlWidth),
		"LastOrderStatus": snapshot.LastOrderStatus,
		"ServerTime":      snapshot.ServerTimeLocal.Format("2006-01-02 15:04:05"),
	})
}

// handleStatusJSON отдает снимок в JSON для внешних потребителей
func (s *Server) handleStatusJSON(c *gin.Context) {
	snapshot := s.store.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"symbol":            snapshot.Symbol,
		"balance":           snapshot.Balance,
		"entry_price":       snapshot.EntryPrice,
		"mark_price":        snapshot.MarkPrice,
		"position_side":     snapshot.PositionSide,
		"trend":             snapshot.Trend,
		"pnl_percent":       snapshot.PnlPercent,
		"pnl_known":         snapshot.PnlKnown,
		"last_order_status": snapshot.LastOrderStatus,
		"server_time_local": snapshot.ServerTimeLocal.Format("2006-01-02 15:04:05"),
	})
}

// statusPage шаблон страницы статуса
const statusPage = `<!DOCTYPE html>
<html>
<head>
    <title>Namtrader {{.Symbol}} Status</title>
    <meta http-equiv="refresh" content="300">
    <style>
        body {
            display: flex;
            justify-content: center;
            align-items: center;
            height: 100vh;
            text-align: center;
            font-family: sans-serif;
            background: #f7f9fc;
            color: #333;
        }
        .container {
            width: 50%;
            background: #fff;
            padding: 20px;
            border-radius: 10px;
            box-shadow: 0 4px 10px rgba(0, 0, 0, 0.1);
        }
        h1 { color: #ff9f00; }
        p { font-size: 1.2em; margin: 10px 0; }
        .pnl { font-weight: bold; color: {{.PnlColor}}; }
        .progress-container {
            width: 100%;
            background-color: #ddd;
            border-radius: 5px;
            overflow: hidden;
            height: 20px;
            margin: 15px 0;
        }
        .progress-bar {
            height: 100%;
            width: {{.PnlWidth}}%;
            background-color: {{.PnlColor}};
            text-align: center;
            color: white;
            line-height: 20px;
        }
        footer { margin-top: 20px; font-size: 0.9em; color: #888; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Namtrader {{.Symbol}} Status</h1>
        <p>Баланс: {{.Balance}} USDT</p>
        <p>Цена входа: {{.EntryPrice}} USDT</p>
        <p>Mark Price: {{.MarkPrice}} USDT</p>
        <p>Позиция: {{.PositionSide}}</p>
        <p>Тренд: {{.Trend}}</p>
        <p class="pnl">PNL: <span class="progress-container"><span class="progress-bar">{{.PnlDisplay}}</span></span></p>
        <p>Последний ордер: {{.LastOrderStatus}}</p>
        <p>Время (UTC+7): {{.ServerTime}}</p>
        <footer><p>&copy; Namtrader</p></footer>
    </div>
</body>
</html>`
