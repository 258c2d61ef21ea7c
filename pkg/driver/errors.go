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

package driver

import (
	"fmt"
)

// ErrConnectionClosed returned by Run when the connection ends without Stop
type ErrConnectionClosed struct {
	Err error
}

func (e ErrConnectionClosed) Error() string {
	return fmt.Sprintf("Connection closed while acquiring: %s", e.Err)
}

func (e ErrConnectionClosed) Unwrap() error {
	return e.Err
}

// ErrAlreadyRunning returned by every Run after the first one
type ErrAlreadyRunning struct{}

func (e ErrAlreadyRunning) Error() string {
	return "Acquisition was already started"
}
