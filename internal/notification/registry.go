package notification

import (
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/fa-training/fithub/pkg/event"
)

// ConnState はライブ接続のライフサイクル状態を表す。
// Open以外はすべて終端状態であり、一度遷移したら戻らない。
type ConnState int32

const (
	// StateOpen は接続が開いていてイベントを受け取れる状態。
	StateOpen ConnState = iota
	// StateCompleted はクライアント切断または明示的なクローズで正常終了した状態。
	StateCompleted
	// StateTimedOut は無通信タイムアウトで終了した状態。
	StateTimedOut
	// StateErrored は送信エラーで終了した状態。
	StateErrored
)

// String はログ出力用の状態名を返す。
func (s ConnState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateCompleted:
		return "completed"
	case StateTimedOut:
		return "timed_out"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

const (
	// eventBufferSize は接続ごとのイベントバッファ数。
	eventBufferSize = 16
	// sendTimeout は1接続への送信試行の上限時間。
	// バッファにもこの時間内に積めない接続は失敗として切り離す。
	sendTimeout = 1 * time.Second
)

// Connection はユーザー1セッション分のライブ接続ハンドル。
// ディスパッチャはEvents経由でイベントを渡し、ストリームエンドポイントが
// トランスポートへ書き出す。プロセス内でのみ有効で、永続化されない。
type Connection struct {
	// id は接続のプロセス内一意識別子（UUID）。
	id string
	// userID は接続を所有するユーザーのID。
	userID string
	// events はディスパッチャからストリームエンドポイントへのイベントチャネル。
	events chan event.StreamEvent
	// done は終端状態への遷移時にクローズされる。
	done chan struct{}
	// closeOnce は終端遷移を一度きりにする。
	closeOnce sync.Once
	// state は現在のライフサイクル状態。
	state atomic.Int32
}

// newConnection は指定ユーザーの新しい接続ハンドルを生成する。
func newConnection(userID string) *Connection {
	return &Connection{
		id:     uuid.New().String(),
		userID: userID,
		events: make(chan event.StreamEvent, eventBufferSize),
		done:   make(chan struct{}),
	}
}

// ID は接続の一意識別子を返す。
func (c *Connection) ID() string { return c.id }

// UserID は接続を所有するユーザーのIDを返す。
func (c *Connection) UserID() string { return c.userID }

// Events は配信対象イベントの受信チャネルを返す。
func (c *Connection) Events() <-chan event.StreamEvent { return c.events }

// Done は接続が終端状態に遷移した際にクローズされるチャネルを返す。
func (c *Connection) Done() <-chan struct{} { return c.done }

// State は接続の現在の状態を返す。
func (c *Connection) State() ConnState { return ConnState(c.state.Load()) }

// Send はイベントの送信を有界時間で試みる。
// バッファに積めない（クライアントが遅い）場合や既に閉じている場合は
// エラーを返す。呼び出し側はエラー時にこの接続を切り離す。
func (c *Connection) Send(ev event.StreamEvent) error {
	select {
	case <-c.done:
		return fmt.Errorf("接続は既に閉じられています: state=%s", c.State())
	default:
	}

	timer := time.NewTimer(sendTimeout)
	defer timer.Stop()

	select {
	case c.events <- ev:
		return nil
	case <-c.done:
		return fmt.Errorf("送信中に接続が閉じられました: state=%s", c.State())
	case <-timer.C:
		return fmt.Errorf("送信がタイムアウトしました（%s以内にバッファへ積めず）", sendTimeout)
	}
}

// Close は接続を指定の終端状態に遷移させる。
// 2回目以降の呼び出しは無視される（最初の遷移が勝つ）。
func (c *Connection) Close(state ConnState) {
	c.closeOnce.Do(func() {
		c.state.Store(int32(state))
		close(c.done)
	})
}

// shardCount はレジストリのシャード数。ユーザーIDのハッシュで分散し、
// あるユーザーの登録・解除が無関係なユーザーを直列化しないようにする。
const shardCount = 16

// registryShard はレジストリの1シャード。ユーザーIDごとの接続リストを持つ。
type registryShard struct {
	mu    sync.RWMutex
	conns map[string][]*Connection
}

// ConnectionRegistry はユーザーごとのライブ接続を並行安全に管理する。
// ストリームエンドポイントの登録・解除、ディスパッチャのスナップショット
// 読み取り、ログアウト時の一括切断がすべてこの構造体を経由する。
type ConnectionRegistry struct {
	shards  [shardCount]*registryShard
	metrics *Metrics
}

// NewConnectionRegistry は新しい接続レジストリを生成する。
func NewConnectionRegistry(metrics *Metrics) *ConnectionRegistry {
	r := &ConnectionRegistry{metrics: metrics}
	for i := range r.shards {
		r.shards[i] = &registryShard{conns: make(map[string][]*Connection)}
	}
	return r
}

// shard はユーザーIDに対応するシャードを返す。
func (r *ConnectionRegistry) shard(userID string) *registryShard {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return r.shards[h.Sum32()%shardCount]
}

// Register は指定ユーザーの新しい接続を作成して登録する。
// ユーザーの接続リストが存在しなければ作成する。
func (r *ConnectionRegistry) Register(userID string) *Connection {
	conn := newConnection(userID)

	s := r.shard(userID)
	s.mu.Lock()
	s.conns[userID] = append(s.conns[userID], conn)
	s.mu.Unlock()

	r.metrics.ConnectionsOpened.Inc()
	r.metrics.ActiveConnections.Inc()
	return conn
}

// Unregister は接続をユーザーのリストから取り除く。
// リストが空になった場合はユーザーのエントリごと削除してメモリを解放する。
// 既に取り除かれた接続に対する呼び出しは何もしない（冪等）。
func (r *ConnectionRegistry) Unregister(userID, connID string) {
	s := r.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	conns, ok := s.conns[userID]
	if !ok {
		return
	}

	for i, conn := range conns {
		if conn.ID() != connID {
			continue
		}
		conns = append(conns[:i], conns[i+1:]...)
		if len(conns) == 0 {
			delete(s.conns, userID)
		} else {
			s.conns[userID] = conns
		}
		r.metrics.ConnectionsClosed.WithLabelValues(conn.State().String()).Inc()
		r.metrics.ActiveConnections.Dec()
		return
	}
}

// ActiveConnections は指定ユーザーのライブ接続のスナップショットを返す。
// 返されるスライスはコピーであり、レジストリの変更と並行して安全に走査できる。
func (r *ConnectionRegistry) ActiveConnections(userID string) []*Connection {
	s := r.shard(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	conns := s.conns[userID]
	if len(conns) == 0 {
		return nil
	}
	snapshot := make([]*Connection, len(conns))
	copy(snapshot, conns)
	return snapshot
}

// HasActive は指定ユーザーがライブ接続を持つかどうかを返す。
func (r *ConnectionRegistry) HasActive(userID string) bool {
	s := r.shard(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns[userID]) > 0
}

// TotalCount は全ユーザーのライブ接続の合計数を返す（診断用）。
func (r *ConnectionRegistry) TotalCount() int {
	total := 0
	for _, s := range r.shards {
		s.mu.RLock()
		for _, conns := range s.conns {
			total += len(conns)
		}
		s.mu.RUnlock()
	}
	return total
}

// CloseAll は指定ユーザーの全接続を正常終了させて取り除く（ログアウト用）。
// 各接続が自力でCompletedに到達するのと競合しても、Unregisterの冪等性と
// Closeの一度きりの遷移により安全に吸収される。
func (r *ConnectionRegistry) CloseAll(userID string) {
	s := r.shard(userID)
	s.mu.Lock()
	conns := s.conns[userID]
	delete(s.conns, userID)
	s.mu.Unlock()

	for _, conn := range conns {
		conn.Close(StateCompleted)
		r.metrics.ConnectionsClosed.WithLabelValues(conn.State().String()).Inc()
		r.metrics.ActiveConnections.Dec()
	}
}
