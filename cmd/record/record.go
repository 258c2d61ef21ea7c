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

package record

import (
	"fmt"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-octaeeg/pkg/command"
	"jinr.ru/greenlab/go-octaeeg/pkg/config"
)

const (
	DirOptionName    = "dir"
	PrefixOptionName = "prefix"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record acquired samples to CSV files",
	}
	cmd.AddCommand(NewStartCommand(cfg))
	cmd.AddCommand(NewFlushCommand(cfg))
	return cmd
}

func NewStartCommand(cfg *config.Config) *cobra.Command {
	var dir, prefix string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start recording into a new file",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			result, err := apiClient.RecordStart(dir, prefix)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recording to %s\n", result.File)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, DirOptionName, "", "Directory on the acquisition host. Default is the configured record dir")
	cmd.Flags().StringVar(&prefix, PrefixOptionName, "", "File name prefix")

	return cmd
}

func NewFlushCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flush",
		Short: "Close the file being recorded",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			result, err := apiClient.Flush()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %d samples to %s\n", result.Rows, result.File)
			return nil
		},
	}
	return cmd
}
