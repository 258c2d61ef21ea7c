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

package discover

import (
	"fmt"
)

// ErrHostNotFound returned when neither mDNS nor the system resolver knows the host
type ErrHostNotFound struct {
	Host string
}

func (e ErrHostNotFound) Error() string {
	return fmt.Sprintf("Error while resolving device address: host %s not found", e.Host)
}
