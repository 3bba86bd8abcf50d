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

// Package metrics mirrors the teacher's statistics pattern
// (internal/concurrent.workerPool's `statistics *metrics.ConcurrentStatistics`
// field): hot-path counters are plain go.uber.org/atomic fields for
// cheap updates, and are exposed as Prometheus metrics via
// github.com/prometheus/client_golang collectors for scraping.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
)

// SchedulerStatistics accumulates the counters spec.md §8's testable
// properties and §4's components need observed: submissions,
// completions, cancellations, errors, pool-exhaustion rejections,
// recovered panics, and work-stealing attempts and successes.
type SchedulerStatistics struct {
	TasksSubmitted  atomic.Int64
	TasksCompleted  atomic.Int64
	TasksCancelled  atomic.Int64
	TasksErrored    atomic.Int64
	TasksRejected   atomic.Int64 // ErrPoolExhausted at submit
	ActionsPanicked atomic.Int64
	StealAttempts   atomic.Int64
	StealSuccesses  atomic.Int64
}

// NewSchedulerStatistics creates a zeroed SchedulerStatistics.
func NewSchedulerStatistics() *SchedulerStatistics {
	return &SchedulerStatistics{}
}

// Collector adapts SchedulerStatistics to prometheus.Collector so a
// Node can register it once with a single prometheus.Registerer.
type Collector struct {
	stats *SchedulerStatistics

	submitted  *prometheus.Desc
	completed  *prometheus.Desc
	cancelled  *prometheus.Desc
	errored    *prometheus.Desc
	rejected   *prometheus.Desc
	panicked   *prometheus.Desc
	steals     *prometheus.Desc
	stealsOK   *prometheus.Desc
}

// NewCollector wraps stats for Prometheus registration.
func NewCollector(stats *SchedulerStatistics) *Collector {
	ns := "taskcore"
	return &Collector{
		stats:     stats,
		submitted: prometheus.NewDesc(ns+"_tasks_submitted_total", "Total tasks submitted.", nil, nil),
		completed: prometheus.NewDesc(ns+"_tasks_completed_total", "Total tasks completed successfully.", nil, nil),
		cancelled: prometheus.NewDesc(ns+"_tasks_cancelled_total", "Total tasks whose final status was cancellation.", nil, nil),
		errored:   prometheus.NewDesc(ns+"_tasks_errored_total", "Total tasks whose action returned a non-nil status.", nil, nil),
		rejected:  prometheus.NewDesc(ns+"_tasks_rejected_total", "Total submissions rejected for pool exhaustion.", nil, nil),
		panicked:  prometheus.NewDesc(ns+"_actions_panicked_total", "Total action invocations recovered from a panic.", nil, nil),
		steals:    prometheus.NewDesc(ns+"_steal_attempts_total", "Total work-stealing attempts.", nil, nil),
		stealsOK:  prometheus.NewDesc(ns+"_steal_successes_total", "Total successful work-stealing attempts.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.submitted
	ch <- c.completed
	ch <- c.cancelled
	ch <- c.errored
	ch <- c.rejected
	ch <- c.panicked
	ch <- c.steals
	ch <- c.stealsOK
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.submitted, prometheus.CounterValue, float64(c.stats.TasksSubmitted.Load()))
	ch <- prometheus.MustNewConstMetric(c.completed, prometheus.CounterValue, float64(c.stats.TasksCompleted.Load()))
	ch <- prometheus.MustNewConstMetric(c.cancelled, prometheus.CounterValue, float64(c.stats.TasksCancelled.Load()))
	ch <- prometheus.MustNewConstMetric(c.errored, prometheus.CounterValue, float64(c.stats.TasksErrored.Load()))
	ch <- prometheus.MustNewConstMetric(c.rejected, prometheus.CounterValue, float64(c.stats.TasksRejected.Load()))
	ch <- prometheus.MustNewConstMetric(c.panicked, prometheus.CounterValue, float64(c.stats.ActionsPanicked.Load()))
	ch <- prometheus.MustNewConstMetric(c.steals, prometheus.CounterValue, float64(c.stats.StealAttempts.Load()))
	ch <- prometheus.MustNewConstMetric(c.stealsOK, prometheus.CounterValue, float64(c.stats.StealSuccesses.Load()))
}
