/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package discover

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-octaeeg/pkg/config"
	"jinr.ru/greenlab/go-octaeeg/pkg/discover"
)

const (
	ServiceOptionName = "service"
	TimeoutOptionName = "timeout"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	var service string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "discover [host]",
		Short: "Browse devices over mDNS or resolve a device host",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if service == "" {
				service = cfg.Device.Service
			}
			resolver := discover.NewResolver(service, timeout)
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				addr, err := resolver.Resolve(context.Background(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(out, addr)
				return nil
			}
			devices, err := resolver.Browse(context.Background())
			if err != nil {
				return err
			}
			for _, device := range devices {
				fmt.Fprint(out, device.String())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&service, ServiceOptionName, "", fmt.Sprintf("mDNS service type. Default %s", config.DefaultDiscoverService))
	cmd.Flags().DurationVar(&timeout, TimeoutOptionName, discover.DefaultTimeout, "How long to wait for answers")

	return cmd
}
