package notification

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"github.com/fa-training/fithub/pkg/event"
	"github.com/fa-training/fithub/pkg/middleware"
)

// handleStream は通知のSSEストリームエンドポイント。
// 接続を登録し、最初に"connected"イベントを送ってから、切断・タイムアウト・
// エラーのいずれかで終わるまでディスパッチャからのイベントを書き出し続ける。
// どの経路で終わっても登録解除は正確に一度だけ行われる。
func (s *Server) handleStream() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "認証が必要です"})
			return
		}

		flusher, ok := c.Writer.(http.Flusher)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ストリーミングに対応していません"})
			return
		}

		conn := s.registry.Register(userID)
		defer s.registry.Unregister(userID, conn.ID())

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)

		// 接続確立の確認イベント。後続の通知より先に必ず届く。
		if err := writeEvent(c, event.NewConnectedEvent()); err != nil {
			log.Printf("接続確認イベントの送信に失敗: user=%s conn=%s: %v", userID, conn.ID(), err)
			conn.Close(StateErrored)
			return
		}
		flusher.Flush()

		timer := time.NewTimer(s.streamTimeout)
		defer timer.Stop()

		for {
			select {
			case ev := <-conn.Events():
				if err := writeEvent(c, ev); err != nil {
					log.Printf("SSEイベントの書き出しに失敗: user=%s conn=%s: %v", userID, conn.ID(), err)
					conn.Close(StateErrored)
					return
				}
				flusher.Flush()
				// 配信があるたびに無通信タイムアウトを仕切り直す
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(s.streamTimeout)

			case <-timer.C:
				log.Printf("無通信タイムアウトで接続を終了します: user=%s conn=%s", userID, conn.ID())
				conn.Close(StateTimedOut)
				return

			case <-c.Request.Context().Done():
				conn.Close(StateCompleted)
				return

			case <-conn.Done():
				// ディスパッチャやログアウト処理が先に接続を閉じた
				return
			}
		}
	}
}

// writeEvent はStreamEventをSSEワイヤ形式でレスポンスに書き出す。
func writeEvent(c *gin.Context, ev event.StreamEvent) error {
	return sse.Encode(c.Writer, sse.Event{
		Event: ev.EventType,
		Data:  ev,
	})
}
