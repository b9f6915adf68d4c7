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

func namesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "names",
		Short: "Manage the reverse name lookup",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "push <names.txt>",
		Short: "Load a file of plain-text labels into Redis",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := configFromCommand(cmd)
			logger := commonRun()
			if err := node.PushNames(cmd.Context(), cfg, logger, args[0]); err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
		},
	})
	return cmd
}
