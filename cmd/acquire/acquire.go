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

package acquire

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-octaeeg/pkg/command"
	"jinr.ru/greenlab/go-octaeeg/pkg/config"
	"jinr.ru/greenlab/go-octaeeg/pkg/device"
)

const (
	HostOptionName       = "host"
	RateOptionName       = "rate"
	GainOptionName       = "gain"
	LayoutOptionName     = "layout"
	StrategyOptionName   = "strategy"
	DebugOptionName      = "debug"
	ApiAddressOptionName = "api-address"
	RecordOptionName     = "record"
	DirOptionName        = "dir"
	PrefixOptionName     = "prefix"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	var host, layout, strategy, apiAddress string
	var rate, gain int
	var debug bool
	rec := command.RecordOptions{}
	cmd := &cobra.Command{
		Use:   "acquire",
		Short: "Configure the device and acquire samples until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed(HostOptionName) {
				cfg.Device.Host = host
			}
			if flags.Changed(RateOptionName) {
				cfg.Acquisition.Rate = rate
			}
			if flags.Changed(GainOptionName) {
				cfg.Acquisition.Gain = gain
			}
			if flags.Changed(LayoutOptionName) {
				cfg.Acquisition.Layout = layout
			}
			if flags.Changed(StrategyOptionName) {
				cfg.Acquisition.Strategy = strategy
			}
			if flags.Changed(DebugOptionName) {
				cfg.Acquisition.Debug = debug
			}
			if flags.Changed(ApiAddressOptionName) {
				cfg.Api.Address = apiAddress
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return command.Acquire(ctx, cfg, rec)
		},
	}
	cmd.Flags().StringVar(&host, HostOptionName, "", fmt.Sprintf("Device host. Default %s", config.DefaultDeviceHost))
	cmd.Flags().IntVar(&rate, RateOptionName, 0, fmt.Sprintf("Sample rate in Hz, one of %v", device.Rates))
	cmd.Flags().IntVar(&gain, GainOptionName, 0, fmt.Sprintf("Amplifier gain, one of %v", device.Gains))
	cmd.Flags().StringVar(&layout, LayoutOptionName, "", "Frame layout: header or compact")
	cmd.Flags().StringVar(&strategy, StrategyOptionName, "", "Timestamp strategy: device, oneshot or host")
	cmd.Flags().BoolVar(&debug, DebugOptionName, false, "Add device timestamp and counter columns")
	cmd.Flags().StringVar(&apiAddress, ApiAddressOptionName, "", fmt.Sprintf("API address to bind. Default %s", config.DefaultApiAddress))
	cmd.Flags().BoolVar(&rec.Enabled, RecordOptionName, false, "Record samples from the start")
	cmd.Flags().StringVar(&rec.Dir, DirOptionName, "", "Directory for recorded files")
	cmd.Flags().StringVar(&rec.Prefix, PrefixOptionName, "", "Recorded file name prefix")

	return cmd
}
