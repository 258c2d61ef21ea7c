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

package conn

import (
	"fmt"
)

// ErrClosed returned by Receive and Send once the websocket is gone.
// Err is the underlying read or write error, nil after a local Close.
type ErrClosed struct {
	URL string
	Err error
}

func (e ErrClosed) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("Connection to %s is closed", e.URL)
	}
	return fmt.Sprintf("Connection to %s is closed: %s", e.URL, e.Err)
}

func (e ErrClosed) Unwrap() error {
	return e.Err
}
