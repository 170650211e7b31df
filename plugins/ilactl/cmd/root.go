// Copyright (c) 2019 Cisco and/or its affiliates.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at:
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/contiv/gtpila/plugins/ila"
	"github.com/contiv/gtpila/plugins/ilactl/cmdimpl"

	// compiled-in identifier DB backends
	_ "github.com/contiv/gtpila/plugins/ila/identdb/etcd"
	_ "github.com/contiv/gtpila/plugins/ila/identdb/redis"
)

var params = cmdimpl.DBParams{
	Backend: "redis",
	Timeout: ila.DefaultOpTimeout,
}

var connectTimeout = 5 * time.Second

var cmdClassify = &cobra.Command{
	Use:   "classify address...",
	Short: "Show locator and identifier of IPv6 addresses",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdimpl.Classify(os.Stdout, args)
	},
}

var cmdPut = &cobra.Command{
	Use:   "put address...",
	Short: "Write identifier entries of ILA addresses pointing to --loc-id",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		return cmdimpl.PutIdent(ctx, os.Stdout, params, args)
	},
}

var cmdGet = &cobra.Command{
	Use:   "get identifier|address...",
	Short: "Read identifier entries",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		return cmdimpl.GetIdent(ctx, os.Stdout, params, args)
	},
}

var cmdDel = &cobra.Command{
	Use:   "del identifier|address...",
	Short: "Remove identifier entries",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		return cmdimpl.DelIdent(ctx, os.Stdout, params, args)
	},
}

var cmdBackends = &cobra.Command{
	Use:   "backends",
	Short: "List compiled-in identifier DB backends",
	Args:  cobra.ExactArgs(0),
	Run: func(cmd *cobra.Command, args []string) {
		cmdimpl.Backends(os.Stdout)
	},
}

// NewRootCmd returns the ilactl command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "gtpila-ctl",
		Short:        "Inspect and edit the ILA identifier DB",
		SilenceUsage: true,
	}
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&params.Backend, "backend", params.Backend, "identifier DB backend")
	flags.StringVar(&params.Host, "host", "", "identifier DB host (backend default if empty)")
	flags.Uint16Var(&params.Port, "port", 0, "identifier DB port (backend default if 0)")
	flags.StringVar(&params.Options, "db-parms", "", "backend options, e.g. \"{password: secret}\"")
	flags.Uint64Var(&params.LocID, "loc-id", 0, "locator id written into entries")
	flags.DurationVar(&params.Timeout, "timeout", params.Timeout, "timeout of a single DB operation")
	flags.DurationVar(&connectTimeout, "connect-timeout", connectTimeout, "timeout of the whole command")

	rootCmd.AddCommand(cmdClassify)
	rootCmd.AddCommand(cmdPut)
	rootCmd.AddCommand(cmdGet)
	rootCmd.AddCommand(cmdDel)
	rootCmd.AddCommand(cmdBackends)
	return rootCmd
}

// Execute will execute the command gtpila-ctl.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
