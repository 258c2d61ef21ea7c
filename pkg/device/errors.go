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
)

// ErrInvalidRate returned when the rate is not in the rate table
type ErrInvalidRate struct {
	Rate int
}

func (e ErrInvalidRate) Error() string {
	return fmt.Sprintf("`%d` is not a valid rate; valid rates are: %v", e.Rate, Rates)
}

// ErrInvalidGain returned when the gain is not in the gain table
type ErrInvalidGain struct {
	Gain int
}

func (e ErrInvalidGain) Error() string {
	return fmt.Sprintf("`%d` is not a valid gain; valid gains are: %v", e.Gain, Gains)
}
