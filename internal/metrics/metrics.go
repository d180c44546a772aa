// Package metrics holds the process-wide Prometheus collectors, registered
// via promauto the way the rest of the sweep pipeline does, so every
// component just imports this package and calls Inc/Set/Observe.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TaskCheckpoint reports the last block height a task has sealed up to.
	TaskCheckpoint = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "evmstage_task_checkpoint",
		Help: "Last block height sealed for a task.",
	}, []string{"task"})

	// ChainHead reports the chain head height observed at the start of a sweep.
	ChainHead = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "evmstage_chain_head",
		Help: "Chain head height observed at the start of the last sweep.",
	})

	// TaskBehind reports how many blocks a task trails the sweep end (chain
	// head minus the confirmation lag) by.
	TaskBehind = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "evmstage_task_behind",
		Help: "Blocks a task's checkpoint trails the sweep end (chain head minus confirmations).",
	}, []string{"task"})

	// PartitionRows reports the row count of the last partition file sealed.
	PartitionRows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "evmstage_partition_rows",
		Help: "Row count of the most recently sealed partition file.",
	}, []string{"task"})

	// DecodeErrorsTotal counts records dropped by a protocol decoder.
	DecodeErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "evmstage_decode_errors_total",
		Help: "Records dropped by a protocol decoder, by protocol and reason.",
	}, []string{"protocol", "reason"})

	// RPCErrorsTotal counts failed upstream RPC calls.
	RPCErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "evmstage_rpc_errors_total",
		Help: "Failed upstream JSON-RPC calls.",
	})
)
