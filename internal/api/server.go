package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"convsweep/internal/events"
	"convsweep/internal/logger"
	"convsweep/internal/metrics"
	"convsweep/internal/summary"
	"convsweep/internal/sweep"
)

// Source はサーバーが状態を読み出す対象
type Source interface {
	Status() sweep.Status
	Rows() []summary.Row
	Metrics() metrics.Snapshot
}

// Server は進捗表示用のAPIサーバー
type Server struct {
	addr   string
	source Source
	bus    *events.Bus

	mu        sync.RWMutex
	wsClients map[*websocket.Conn]bool

	server *http.Server
}

// NewServer は新しいAPIサーバーを作成する
func NewServer(addr string, source Source, bus *events.Bus) *Server {
	return &Server{
		addr:      addr,
		source:    source,
		bus:       bus,
		wsClients: make(map[*websocket.Conn]bool),
	}
}

// Handler はルーティング済みのハンドラを返す
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/rows", s.handleRows)
	mux.HandleFunc("/api/metrics", s.handleMetrics)

	mux.Handle("/ws", websocket.Handler(s.handleWebSocket))

	return mux
}

// Start はサーバーを開始し、ctxがキャンセルされるまでブロックする
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve はlnでサーバーを開始する
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.ForwardEvents(ctx)
	}()
	go func() {
		defer wg.Done()
		<-ctx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		_ = s.server.Shutdown(shutdownCtx)
		s.closeClients()
	}()

	logger.Info("", "Progress server listening on http://%s", ln.Addr())

	err := s.server.Serve(ln)
	cancel()
	wg.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ForwardEvents はバスのイベントをWebSocketクライアントへ配信する
func (s *Server) ForwardEvents(ctx context.Context) {
	if s.bus == nil {
		<-ctx.Done()
		return
	}
	ch := s.bus.Subscribe()
	defer s.bus.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			s.broadcast(ev)
		}
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.source.Status())
}

// RowResponse は1行分の結果
type RowResponse struct {
	Degree     string    `json:"degree"`
	Mesh       string    `json:"mesh"`
	Project    string    `json:"project"`
	L2         []float64 `json:"l2"`
	Linf       []float64 `json:"linf"`
	CostPerDOF float64   `json:"cost_per_dof"`
	Wall       string    `json:"wall"`
}

func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rows := s.source.Rows()
	resp := make([]RowResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, RowResponse{
			Degree:     row.Degree,
			Mesh:       row.MeshName,
			Project:    row.ProjectName,
			L2:         row.L2,
			Linf:       row.Linf,
			CostPerDOF: row.CostPerDOF,
			Wall:       row.Wall.String(),
		})
	}

	s.writeJSON(w, resp)
}

// MetricsResponse はメトリクスレスポンス
type MetricsResponse struct {
	TotalRuns     uint64  `json:"total_runs"`
	SucceededRuns uint64  `json:"succeeded_runs"`
	FailedRuns    uint64  `json:"failed_runs"`
	AvgWallMs     float64 `json:"avg_wall_ms"`
	MinWallMs     float64 `json:"min_wall_ms"`
	MaxWallMs     float64 `json:"max_wall_ms"`
	ElapsedMs     float64 `json:"elapsed_ms"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	m := s.source.Metrics()
	s.writeJSON(w, MetricsResponse{
		TotalRuns:     m.TotalRuns,
		SucceededRuns: m.SucceededRuns,
		FailedRuns:    m.FailedRuns,
		AvgWallMs:     millis(m.AverageWall),
		MinWallMs:     millis(m.MinWall),
		MaxWallMs:     millis(m.MaxWall),
		ElapsedMs:     millis(m.Elapsed),
	})
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// WebSocket handling
func (s *Server) handleWebSocket(ws *websocket.Conn) {
	s.mu.Lock()
	s.wsClients[ws] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.wsClients, ws)
		s.mu.Unlock()
		_ = ws.Close()
	}()

	// 切断されるまで待つ
	for {
		var msg string
		if err := websocket.Message.Receive(ws, &msg); err != nil {
			break
		}
	}
}

// ClientCount は接続中のWebSocketクライアント数を返す
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.wsClients)
}

func (s *Server) broadcast(data any) {
	s.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(s.wsClients))
	for ws := range s.wsClients {
		clients = append(clients, ws)
	}
	s.mu.RUnlock()

	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}

	for _, ws := range clients {
		_ = websocket.Message.Send(ws, string(jsonData))
	}
}

func (s *Server) closeClients() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ws := range s.wsClients {
		_ = ws.Close()
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("", "Failed to encode JSON: %v", err)
	}
}
