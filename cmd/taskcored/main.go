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

// Command taskcored is a thin demonstration binary: it brings up a
// Node, runs the spec.md §8 literal scenarios (fibonacci via recursive
// submit, group wait-all, ordered queue serialisation) and prints
// their results, then optionally serves /metrics for scraping.
package main

import (
	"fmt"
	"os"

	"github.com/lindb/common/pkg/ltoml"
	"github.com/spf13/cobra"
)

const defaultConfigFile = "taskcored.toml"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "taskcored",
		Short: "taskcored runs the taskcore scheduler demo scenarios",
	}
	root.AddCommand(newRunCmd(), newInitConfigCmd())
	return root
}

var (
	cfgFile     string
	metricsAddr string
)

func newRunCmd() *cobra.Command {
	run := &cobra.Command{
		Use:   "run",
		Short: "bring up a Node and run the demo scenarios",
		RunE:  runDemo,
	}
	run.Flags().StringVar(&cfgFile, "config", "", fmt.Sprintf("node config file path, default is %s", defaultConfigFile))
	run.Flags().StringVar(&metricsAddr, "metrics-addr", "", "if set, serve Prometheus /metrics on this address until Ctrl-C")
	return run
}

func newInitConfigCmd() *cobra.Command {
	initConfig := &cobra.Command{
		Use:   "init-config",
		Short: "write a new default node config",
		RunE: func(_ *cobra.Command, _ []string) error {
			path := cfgFile
			if path == "" {
				path = defaultConfigFile
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("taskcored: %s already exists", path)
			}
			return ltoml.WriteConfig(path, defaultNodeConfig())
		},
	}
	initConfig.Flags().StringVar(&cfgFile, "config", "", fmt.Sprintf("node config file path, default is %s", defaultConfigFile))
	return initConfig
}
