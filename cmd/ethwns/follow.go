// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/blinklabs-io/ethwns/internal/node"
)

func followCommand() *cobra.Command {
	var rpcURL string
	var startBlock uint64
	cmd := &cobra.Command{
		Use:   "follow",
		Short: "Index contract logs from an Ethereum JSON-RPC endpoint",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cfg := configFromCommand(cmd)
			if cmd.Flags().Changed("rpc-url") {
				cfg.Rpc.Url = rpcURL
			}
			if cmd.Flags().Changed("start-block") {
				cfg.Rpc.StartBlock = startBlock
			}
			logger := commonRun()
			if err := node.Follow(cmd.Context(), cfg, logger); err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
		},
	}
	cmd.Flags().StringVar(&rpcURL, "rpc-url", "", "JSON-RPC endpoint, overrides rpc.url")
	cmd.Flags().Uint64Var(&startBlock, "start-block", 0, "first block to index when no cursor is stored")
	return cmd
}
