/*
 *
 * Copyright 2014 gRPC authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package codes

import "testing"

func TestValidCoversZeroThroughSixteen(t *testing.T) {
	for i := 0; i <= 16; i++ {
		if !Code(i).Valid() {
			t.Errorf("Code(%d).Valid() = false, want true", i)
		}
	}
}

func TestDoNotUseIsInvalid(t *testing.T) {
	if DoNotUse.Valid() {
		t.Error("DoNotUse.Valid() = true, want false")
	}
	if Code(17).Valid() {
		t.Error("Code(17).Valid() = true, want false")
	}
}

func TestStringOfUnknownCodeIsNumeric(t *testing.T) {
	if got := Code(17).String(); got != "Code(17)" {
		t.Errorf("Code(17).String() = %q, want \"Code(17)\"", got)
	}
}

func TestStringRoundTripsNames(t *testing.T) {
	if OK.String() != "OK" || Internal.String() != "Internal" || Unauthenticated.String() != "Unauthenticated" {
		t.Error("String() did not return expected names for OK/Internal/Unauthenticated")
	}
}
