// Licensed to LinDB under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. LinDB licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package config holds the Node's settable attributes, following the
// teacher corpus's ltoml-tagged config struct pattern (config/monitor.go,
// config/storage.go): env/toml struct tags plus a TOML() method that
// renders a commented reference configuration.
package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/lindb/common/pkg/ltoml"

	"github.com/taskcore/taskcore"
)

// Node configures taskcore.NodeAttributes for Node.Initialize
// (spec.md §6), with zero values resolving to the spec's documented
// defaults.
type Node struct {
	Workers         int            `env:"WORKERS" toml:"workers"`
	TaskPoolSize    int            `env:"TASK_POOL_SIZE" toml:"task-pool-size"`
	GroupPoolSize   int            `env:"GROUP_POOL_SIZE" toml:"group-pool-size"`
	QueuePoolSize   int            `env:"QUEUE_POOL_SIZE" toml:"queue-pool-size"`
	ActionPoolSize  int            `env:"ACTION_POOL_SIZE" toml:"action-pool-size"`
	FinalizeTimeout ltoml.Duration `env:"FINALIZE_TIMEOUT" toml:"finalize-timeout"`
	SpinIterations  int            `env:"SPIN_ITERATIONS" toml:"spin-iterations"`
}

// Default pool sizes and spin budget, spec.md §4.1 / §4.2.
const (
	DefaultTaskPoolSize    = 1024
	DefaultGroupPoolSize   = 128
	DefaultQueuePoolSize   = 128
	DefaultActionPoolSize  = 64
	DefaultSpinIterations  = 256
	DefaultFinalizeTimeout = 30 * time.Second
)

// NewDefaultNode returns a Node config with every spec.md §4.1 default
// filled in and Workers set to the logical CPU count.
func NewDefaultNode() *Node {
	return &Node{
		Workers:         runtime.NumCPU(),
		TaskPoolSize:    DefaultTaskPoolSize,
		GroupPoolSize:   DefaultGroupPoolSize,
		QueuePoolSize:   DefaultQueuePoolSize,
		ActionPoolSize:  DefaultActionPoolSize,
		FinalizeTimeout: ltoml.Duration(DefaultFinalizeTimeout),
		SpinIterations:  DefaultSpinIterations,
	}
}

// Attributes converts the config into taskcore.NodeAttributes, the
// plain value type Node.Initialize accepts.
func (n *Node) Attributes() taskcore.NodeAttributes {
	return taskcore.NodeAttributes{
		Workers:         n.Workers,
		TaskPoolSize:    n.TaskPoolSize,
		GroupPoolSize:   n.GroupPoolSize,
		QueuePoolSize:   n.QueuePoolSize,
		ActionPoolSize:  n.ActionPoolSize,
		FinalizeTimeout: time.Duration(n.FinalizeTimeout),
		SpinIterations:  n.SpinIterations,
	}
}

// TOML returns Node's toml config, in the teacher's documented,
// commented-reference-config style.
func (n *Node) TOML() string {
	return fmt.Sprintf(`
## Config for the taskcore Node
[node]
## number of worker threads; 0 means the logical CPU count
## Default: %d (this machine's logical CPU count)
## Env: TASKCORE_NODE_WORKERS
workers = %d
## fixed capacity of the task descriptor pool
## Default: %d
## Env: TASKCORE_NODE_TASK_POOL_SIZE
task-pool-size = %d
## fixed capacity of the group descriptor pool
## Default: %d
## Env: TASKCORE_NODE_GROUP_POOL_SIZE
group-pool-size = %d
## fixed capacity of the queue descriptor pool
## Default: %d
## Env: TASKCORE_NODE_QUEUE_POOL_SIZE
queue-pool-size = %d
## fixed capacity of the action registry pool
## Default: %d
## Env: TASKCORE_NODE_ACTION_POOL_SIZE
action-pool-size = %d
## how long Finalize waits for in-flight tasks to retire before
## reporting ErrTimeout; workers are always joined regardless
## Default: %s
## Env: TASKCORE_NODE_FINALIZE_TIMEOUT
finalize-timeout = "%s"
## busy-spin iterations a worker runs before parking, clamped to [64, 4096]
## Default: %d
## Env: TASKCORE_NODE_SPIN_ITERATIONS
spin-iterations = %d`,
		runtime.NumCPU(), n.Workers,
		DefaultTaskPoolSize, n.TaskPoolSize,
		DefaultGroupPoolSize, n.GroupPoolSize,
		DefaultQueuePoolSize, n.QueuePoolSize,
		DefaultActionPoolSize, n.ActionPoolSize,
		ltoml.Duration(DefaultFinalizeTimeout).String(), n.FinalizeTimeout.String(),
		DefaultSpinIterations, n.SpinIterations,
	)
}
