package notification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics は通知サブシステムのPrometheusメトリクス。
// 接続数の推移と配信の成否を追跡する。
type Metrics struct {
	// ActiveConnections は現在のライブ接続数のゲージ。
	ActiveConnections prometheus.Gauge
	// ConnectionsOpened は登録された接続の累計数。
	ConnectionsOpened prometheus.Counter
	// ConnectionsClosed は終端状態別の切断累計数。
	// ラベル: cause (completed|timed_out|errored)
	ConnectionsClosed *prometheus.CounterVec
	// NotificationsCreated は種類別の通知作成累計数。
	NotificationsCreated *prometheus.CounterVec
	// PushDelivered はライブ接続への配信成功の累計数。
	PushDelivered prometheus.Counter
	// PushFailed はライブ接続への配信失敗（接続切り離し）の累計数。
	PushFailed prometheus.Counter
}

// NewMetrics はメトリクスを生成して指定レジストリに登録する。
// テストではテストごとに独立したレジストリを渡す。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "fithub_notification_active_connections",
			Help: "現在開いているSSE接続の数",
		}),
		ConnectionsOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "fithub_notification_connections_opened_total",
			Help: "登録されたSSE接続の累計数",
		}),
		ConnectionsClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fithub_notification_connections_closed_total",
			Help: "終端状態別のSSE接続切断の累計数",
		}, []string{"cause"}),
		NotificationsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fithub_notifications_created_total",
			Help: "種類別の通知作成の累計数",
		}, []string{"kind"}),
		PushDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "fithub_notification_push_delivered_total",
			Help: "ライブ接続への配信成功の累計数",
		}),
		PushFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "fithub_notification_push_failed_total",
			Help: "ライブ接続への配信失敗の累計数",
		}),
	}
}
