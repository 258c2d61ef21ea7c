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

package sessions

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-octaeeg/pkg/command"
	"jinr.ru/greenlab/go-octaeeg/pkg/config"
	"jinr.ru/greenlab/go-octaeeg/pkg/state"
)

const (
	OfflineOptionName = "offline"
)

func printSessions(out io.Writer, sessions []*state.Session) {
	for _, s := range sessions {
		finished := "running"
		if s.Finished != nil {
			finished = s.Finished.Sub(s.Started).Round(time.Second).String()
		}
		fmt.Fprintf(out, "%s\t%s\t%s\t%d Hz\tgain %d\t%d samples\t%s\n",
			s.ID, s.Started.Local().Format(time.DateTime), s.Device, s.Rate, s.Gain, s.Samples, finished)
		if s.Error != "" {
			fmt.Fprintf(out, "\terror: %s\n", s.Error)
		}
		for _, f := range s.Files {
			fmt.Fprintf(out, "\tfile: %s\n", f)
		}
	}
}

func NewCommand(cfg *config.Config) *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List acquisition sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			var sessions []*state.Session
			if offline {
				// the database is locked while acquiring
				st, err := state.Open(cfg.DBPath)
				if err != nil {
					return err
				}
				defer st.Close()
				if sessions, err = st.List(); err != nil {
					return err
				}
			} else {
				var err error
				if sessions, err = command.NewApiClient(cfg).Sessions(); err != nil {
					return err
				}
			}
			printSessions(cmd.OutOrStdout(), sessions)
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, OfflineOptionName, false, "Read the session database directly instead of asking the running acquisition")

	return cmd
}
