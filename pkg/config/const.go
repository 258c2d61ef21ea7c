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

package config

import (
	"time"
)

const (
	ConfigDir  = ".go-octaeeg"
	ConfigFile = "config"
	DBFile     = "sessions.db"

	DefaultDeviceHost      = "oric.local"
	DefaultDevicePort      = 81
	DefaultDevicePath      = "/"
	DefaultDiscoverService = "_http._tcp"
	DefaultDialTimeout     = 5 * time.Second
	DefaultRate            = 250
	DefaultGain            = 24
	DefaultLayout          = "header"
	DefaultStrategy        = "device"
	DefaultApiAddress      = "127.0.0.1:8001"
	DefaultDrainInterval   = 100 * time.Millisecond
	DefaultOutboxSize      = 1000
	DefaultRecordDir       = "."
	DefaultLogLevel        = "info"
	TimestampChannelName   = "TIMESTAMP"
	CounterChannelName     = "COUNTER"
)
