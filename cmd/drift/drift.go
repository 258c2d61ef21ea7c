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

package drift

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-octaeeg/pkg/config"
	"jinr.ru/greenlab/go-octaeeg/pkg/record"
)

const (
	RateOptionName = "rate"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	var rate int
	cmd := &cobra.Command{
		Use:   "drift <file>",
		Short: "Estimate clock drift of a recorded file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed(RateOptionName) {
				rate = cfg.Acquisition.Rate
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			timestamps, err := record.ReadTimestamps(f)
			if err != nil {
				return err
			}
			report, err := record.EstimateDrift(timestamps, rate)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "File: %s\n%s", args[0], report)
			return nil
		},
	}
	cmd.Flags().IntVar(&rate, RateOptionName, 0, "Nominal sample rate in Hz. Default is the configured rate")

	return cmd
}
