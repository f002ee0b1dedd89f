// Package metrics объявляет счётчики prometheus для движка сверки и
// шлюза сообщений. Счётчики регистрируются в глобальном реестре и
// отдаются через /metrics сервисного HTTP-сервера.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScanCycles количество завершённых циклов сканера истечения.
	ScanCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keeper_scan_cycles_total",
		Help: "Completed expiry scanner cycles.",
	})

	// Transitions переходы отметки notified по состояниям.
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "keeper_notify_transitions_total",
		Help: "Notified marker transitions by target state.",
	}, []string{"state"})

	// MalformedRecords повреждённые записи, пропущенные при сканировании.
	MalformedRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keeper_malformed_records_total",
		Help: "Records skipped as malformed during scanning.",
	})

	// RemovalsPurged пользователи, удалённые после льготного периода.
	RemovalsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keeper_removals_purged_total",
		Help: "Users purged after the grace period.",
	})

	// NoticesSent успешно отправленные уведомления.
	NoticesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keeper_notices_sent_total",
		Help: "Expiry notices delivered to users.",
	})

	// NoticesFailed уведомления, которые не удалось доставить.
	NoticesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keeper_notices_failed_total",
		Help: "Expiry notices that failed to deliver.",
	})

	// Revocations выполненные исключения из закрытой группы.
	Revocations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keeper_revocations_total",
		Help: "Group membership revocations performed.",
	})
)
