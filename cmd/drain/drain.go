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

package drain

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-octaeeg/pkg/command"
	"jinr.ru/greenlab/go-octaeeg/pkg/config"
	"jinr.ru/greenlab/go-octaeeg/pkg/driver"
)

const (
	FollowOptionName   = "follow"
	IntervalOptionName = "interval"
)

func printBatch(out io.Writer, batch *driver.Batch, header bool) {
	if header {
		fmt.Fprintf(out, "timestamp\t%s\n", strings.Join(batch.Names, "\t"))
	}
	values := make([]string, 0, len(batch.Names))
	for i, row := range batch.Rows {
		values = values[:0]
		for _, v := range row {
			values = append(values, strconv.FormatFloat(v, 'f', 3, 64))
		}
		fmt.Fprintf(out, "%s\t%s\n", batch.Timestamps[i].Format(time.RFC3339Nano), strings.Join(values, "\t"))
	}
}

func NewCommand(cfg *config.Config) *cobra.Command {
	var follow bool
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "drain",
		Short: "Print the samples acquired since the previous drain",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			out := cmd.OutOrStdout()
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			header := true
			for {
				batch, ok, err := apiClient.Drain()
				if err != nil {
					return err
				}
				if ok {
					printBatch(out, batch, header)
					header = false
				}
				if !follow {
					return nil
				}
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(interval):
				}
			}
		},
	}
	cmd.Flags().BoolVarP(&follow, FollowOptionName, "f", false, "Keep draining until interrupted")
	cmd.Flags().DurationVar(&interval, IntervalOptionName, 500*time.Millisecond, "Interval between drains with --follow")

	return cmd
}
