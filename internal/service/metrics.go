package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 分成创建总数
	distributionsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tip_distributions_created_total",
			Help: "创建的小费分成行总数",
		},
	)

	// 无法归因的小费总数
	unattributedTipsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tip_unattributed_total",
			Help: "无归因员工或小费池为空而未分成的小费总数",
		},
	)

	// 结算批次运行总数
	payoutBatchRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payout_batch_runs_total",
			Help: "批量结算运行总数",
		},
	)

	// 结算结果计数
	payoutSettleTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payout_settle_total",
			Help: "单员工结算结果计数",
		},
		[]string{"result"}, // processed / failed / skipped
	)

	// Webhook 对账回滚总数
	payoutReconcileTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payout_reconcile_total",
			Help: "处理器回调触发的打款单回滚总数",
		},
		[]string{"event"}, // transfer_failed / transfer_reversed
	)
)
