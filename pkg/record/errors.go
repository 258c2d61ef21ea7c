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
)

// ErrNotEnoughSamples returned when drift can not be estimated
type ErrNotEnoughSamples struct {
	Samples int
}

func (e ErrNotEnoughSamples) Error() string {
	return fmt.Sprintf("Can not estimate drift from %d samples spanning no time", e.Samples)
}

// ErrColumnMismatch returned when a batch does not fit the file header
type ErrColumnMismatch struct {
	Expected int
	Actual   int
}

func (e ErrColumnMismatch) Error() string {
	return fmt.Sprintf("Row has %d columns, file has %d", e.Actual, e.Expected)
}
