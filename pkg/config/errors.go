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
	"fmt"
)

// ErrConfigFileExists returned when persisting would overwrite an existing file
type ErrConfigFileExists struct {
	Path string
}

func (e ErrConfigFileExists) Error() string {
	return fmt.Sprintf("Config file already exists: %s", e.Path)
}

// ErrInvalidLayout returned for an unknown block layout
type ErrInvalidLayout struct {
	Layout string
}

func (e ErrInvalidLayout) Error() string {
	return fmt.Sprintf("`%s` is not a valid layout; valid layouts are: header, compact", e.Layout)
}

// ErrInvalidStrategy returned for an unknown timestamp strategy or a strategy
// which needs a device clock the layout does not carry
type ErrInvalidStrategy struct {
	Strategy string
	Layout   string
}

func (e ErrInvalidStrategy) Error() string {
	if e.Layout != "" {
		return fmt.Sprintf("Strategy `%s` needs device timestamps which layout `%s` does not provide", e.Strategy, e.Layout)
	}
	return fmt.Sprintf("`%s` is not a valid strategy; valid strategies are: device, oneshot, host", e.Strategy)
}
