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

package device

import (
	"fmt"

	"jinr.ru/greenlab/go-octaeeg/pkg/log"
)

const (
	CmdSdatac = "sdatac"
	CmdRdatac = "rdatac"
	CmdWreg   = "wreg"
	CmdStatus = "status"
)

// Command is a text command understood by the board firmware.
// It is sent as JSON: {"command":"wreg","parameters":[1,150]}
type Command struct {
	Command    string `json:"command"`
	Parameters []int  `json:"parameters"`
}

func (c Command) String() string {
	return fmt.Sprintf("%s %v", c.Command, c.Parameters)
}

// Sender sends commands to the board
type Sender interface {
	Send(cmd Command) error
}

func simple(name string) Command {
	return Command{Command: name, Parameters: []int{}}
}

// Wreg builds a register write command
func Wreg(reg RegAlias, value uint8) Command {
	return Command{Command: CmdWreg, Parameters: []int{int(RegMap[reg]), int(value)}}
}

// SetupCommands returns the command sequence which stops continuous
// conversion, programs rate and gain and starts continuous conversion again
func SetupCommands(rate Rate, gain Gain) []Command {
	cmds := []Command{
		simple(CmdSdatac),
		Wreg(RegConfig1, rate.Register()),
		Wreg(RegConfig2, Config2Default),
		Wreg(RegConfig3, Config3Default),
		Wreg(RegMisc1, Misc1SRB1),
	}
	for _, reg := range ChannelSetRegs {
		cmds = append(cmds, Wreg(reg, gain.Register()))
	}
	return append(cmds, simple(CmdStatus), simple(CmdRdatac))
}

// Configure sends the setup sequence to the board
func Configure(s Sender, rate Rate, gain Gain) error {
	log.Info("Configuring device: rate: %d Hz gain: %d", rate, gain)
	for _, cmd := range SetupCommands(rate, gain) {
		log.Debug("Sending command: %s", cmd)
		if err := s.Send(cmd); err != nil {
			return fmt.Errorf("sending %s: %w", cmd.Command, err)
		}
	}
	return nil
}
