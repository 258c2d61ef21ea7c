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

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-octaeeg/cmd/acquire"
	"jinr.ru/greenlab/go-octaeeg/cmd/completion"
	"jinr.ru/greenlab/go-octaeeg/cmd/config"
	"jinr.ru/greenlab/go-octaeeg/cmd/discover"
	"jinr.ru/greenlab/go-octaeeg/cmd/drain"
	"jinr.ru/greenlab/go-octaeeg/cmd/drift"
	"jinr.ru/greenlab/go-octaeeg/cmd/record"
	"jinr.ru/greenlab/go-octaeeg/cmd/sessions"
	"jinr.ru/greenlab/go-octaeeg/cmd/status"
	pkgconfig "jinr.ru/greenlab/go-octaeeg/pkg/config"
	"jinr.ru/greenlab/go-octaeeg/pkg/log"
)

const (
	LogLevelOptionName = "log-level"
	ConfigOptionName   = "config"
)

func NewRootCommand(out io.Writer) *cobra.Command {
	var logLevel, configPath string
	cfg := pkgconfig.NewDefaultConfig()
	cmd := &cobra.Command{
		Use:           "go-octaeeg",
		Short:         "Tool to acquire EEG samples from OctaEEG devices",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				cfg.SetPath(configPath)
			}
			if err := cfg.Load(); err != nil {
				return fmt.Errorf("loading config %s: %w", cfg.Path(), err)
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			return log.Init(cmd.ErrOrStderr(), cfg.LogLevel)
		},
	}
	cmd.SetOut(out)
	cmd.AddCommand(acquire.NewCommand(cfg))
	cmd.AddCommand(drain.NewCommand(cfg))
	cmd.AddCommand(status.NewCommand(cfg))
	cmd.AddCommand(record.NewCommand(cfg))
	cmd.AddCommand(sessions.NewCommand(cfg))
	cmd.AddCommand(discover.NewCommand(cfg))
	cmd.AddCommand(drift.NewCommand(cfg))
	cmd.AddCommand(config.NewCommand(cfg))
	cmd.AddCommand(completion.NewCommand())
	cmd.PersistentFlags().StringVar(&logLevel, LogLevelOptionName, "", fmt.Sprintf("Log level. %s", log.HelpLevels))
	cmd.PersistentFlags().StringVar(&configPath, ConfigOptionName, "", fmt.Sprintf("Config file. Default %s", pkgconfig.DefaultConfigPath()))
	return cmd
}
