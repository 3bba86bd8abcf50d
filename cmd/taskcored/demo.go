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

package main

import (
	"encoding/binary"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/atomic"

	"github.com/taskcore/taskcore"
	"github.com/taskcore/taskcore/config"
	"github.com/taskcore/taskcore/node"
	"github.com/taskcore/taskcore/task"
)

func defaultNodeConfig() *config.Node {
	return config.NewDefaultNode()
}

func runDemo(_ *cobra.Command, _ []string) error {
	if cfgFile != "" {
		fmt.Fprintf(os.Stderr, "taskcored: --config is only consulted by init-config in this demo binary, running with defaults\n")
	}
	if err := node.Initialize(defaultNodeConfig().Attributes()); err != nil {
		return err
	}
	defer func() { _ = node.Finalize() }()

	if err := runFibonacci(); err != nil {
		return err
	}
	if err := runGroupWaitAll(); err != nil {
		return err
	}
	if err := runGroupWaitAny(); err != nil {
		return err
	}
	if err := runOrderedQueue(); err != nil {
		return err
	}

	if metricsAddr != "" {
		return serveMetrics(metricsAddr)
	}
	return nil
}

// fibJob recursively submits fib(n-1) and fib(n-2), matching spec.md
// §8 scenario 1: fib(6) submits 25 tasks in total and settles on 8.
// args/result are 8-byte little-endian integers; the recursive
// submissions use node.SubmitFrom so they land with this worker's
// locality preference (spec.md §4.3 step 6a).
const fibJob taskcore.JobID = 1000

func fibAction(args []byte, result []byte, _ any, ctx taskcore.ActionContext) {
	n := int64(binary.LittleEndian.Uint64(args))
	if n < 2 {
		binary.LittleEndian.PutUint64(result, uint64(n))
		return
	}

	argsA := make([]byte, 8)
	binary.LittleEndian.PutUint64(argsA, uint64(n-1))
	resultA := make([]byte, 8)
	thA, err := node.SubmitFrom(ctx, fibJob, argsA, resultA, node.SubmitOptions{})
	if err != nil {
		ctx.SetStatus(err)
		return
	}

	argsB := make([]byte, 8)
	binary.LittleEndian.PutUint64(argsB, uint64(n-2))
	resultB := make([]byte, 8)
	thB, err := node.SubmitFrom(ctx, fibJob, argsB, resultB, node.SubmitOptions{})
	if err != nil {
		ctx.SetStatus(err)
		return
	}

	if _, err := node.Wait(thA, -1); err != nil {
		ctx.SetStatus(err)
		return
	}
	if _, err := node.Wait(thB, -1); err != nil {
		ctx.SetStatus(err)
		return
	}

	sum := binary.LittleEndian.Uint64(resultA) + binary.LittleEndian.Uint64(resultB)
	binary.LittleEndian.PutUint64(result, sum)
}

func runFibonacci() error {
	if _, err := node.RegisterAction(fibJob, fibAction, nil, nil); err != nil {
		return err
	}

	args := make([]byte, 8)
	binary.LittleEndian.PutUint64(args, 6)
	result := make([]byte, 8)
	th, err := node.Submit(fibJob, args, result, node.SubmitOptions{})
	if err != nil {
		return err
	}
	if _, err := node.Wait(th, -1); err != nil {
		return err
	}

	fmt.Printf("fib(6) = %d\n", binary.LittleEndian.Uint64(result))
	return nil
}

// counterJob increments a shared counter, matching spec.md §8 scenario
// 2: 100 tasks in one group, wait_all returns only once every one of
// them has incremented it.
const counterJob taskcore.JobID = 1001

var groupCounter atomic.Int64

func counterAction(_ []byte, _ []byte, _ any, _ taskcore.ActionContext) {
	groupCounter.Add(1)
}

func runGroupWaitAll() error {
	if _, err := node.RegisterAction(counterJob, counterAction, nil, nil); err != nil {
		return err
	}

	g, err := node.CreateGroup()
	if err != nil {
		return err
	}
	defer func() { _ = node.DeleteGroup(g) }()

	groupCounter.Store(0)
	for i := 0; i < 100; i++ {
		if _, err := node.Submit(counterJob, nil, nil, node.SubmitOptions{
			InGroup: true,
			Group:   g,
		}); err != nil {
			return err
		}
	}
	if err := node.WaitAllGroup(g, -1); err != nil {
		return err
	}

	fmt.Printf("group wait_all: counter = %d (want 100)\n", groupCounter.Load())
	return nil
}

// sleepJob sleeps for the duration (milliseconds, little-endian
// uint64) encoded in args, matching spec.md §8 scenario 3: four tasks
// sleeping 40/30/20/10ms in one group, wait_any must return them in
// completion order (10, 20, 30, 40), not submission order.
const sleepJob taskcore.JobID = 1002

func sleepAction(args []byte, _ []byte, _ any, _ taskcore.ActionContext) {
	ms := binary.LittleEndian.Uint64(args)
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

func runGroupWaitAny() error {
	if _, err := node.RegisterAction(sleepJob, sleepAction, nil, nil); err != nil {
		return err
	}

	g, err := node.CreateGroup()
	if err != nil {
		return err
	}
	defer func() { _ = node.DeleteGroup(g) }()

	byHandle := make(map[task.Handle]int)
	for _, ms := range []uint64{40, 30, 20, 10} {
		args := make([]byte, 8)
		binary.LittleEndian.PutUint64(args, ms)
		th, err := node.Submit(sleepJob, args, nil, node.SubmitOptions{
			InGroup: true,
			Group:   g,
		})
		if err != nil {
			return err
		}
		byHandle[th] = int(ms)
	}

	var order []int
	for range byHandle {
		th, err := node.WaitAnyGroup(g, -1)
		if err != nil {
			return err
		}
		order = append(order, byHandle[th])
	}
	fmt.Printf("group wait_any completion order: %v (want ascending)\n", order)
	return nil
}

func runOrderedQueue() error {
	q, err := node.CreateQueue(sleepJob, taskcore.QueueAttributes{Ordered: true})
	if err != nil {
		return err
	}
	defer func() { _ = node.DeleteQueue(q) }()

	handles := make([]task.Handle, 0, 8)
	for i := 0; i < 8; i++ {
		args := make([]byte, 8)
		binary.LittleEndian.PutUint64(args, 5)
		th, err := node.Submit(sleepJob, args, nil, node.SubmitOptions{
			InQueue: true,
			Queue:   q,
		})
		if err != nil {
			return err
		}
		handles = append(handles, th)
	}
	for _, h := range handles {
		if _, err := node.Wait(h, -1); err != nil {
			return err
		}
	}
	fmt.Println("ordered queue: 8 tasks serialised")
	return nil
}

func serveMetrics(addr string) error {
	collector, err := node.Registerer()
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	if err := reg.Register(collector); err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = srv.ListenAndServe()
	}()

	fmt.Printf("serving /metrics on %s, press Ctrl-C to exit\n", addr)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	return srv.Close()
}
