// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fs

import "golang.org/x/sys/unix"

// getXattr forwards an extended attribute read to the backing file,
// two-phase just like the kernel's own getxattr(2): callers first ask for
// the size by passing a zero-length destination, then re-call with a
// buffer of that size.
func getXattr(real, name string) ([]byte, error) {
	size, err := unix.Lgetxattr(real, name, nil)
	if err != nil {
		return nil, err
	}

	if size == 0 {
		return nil, nil
	}

	buf := make([]byte, size)
	n, err := unix.Lgetxattr(real, name, buf)
	if err != nil {
		return nil, err
	}

	return buf[:n], nil
}

// listXattr forwards an extended attribute name listing to the backing
// file, two-phase like getXattr.
func listXattr(real string) ([]byte, error) {
	size, err := unix.Llistxattr(real, nil)
	if err != nil {
		return nil, err
	}

	if size == 0 {
		return nil, nil
	}

	buf := make([]byte, size)
	n, err := unix.Llistxattr(real, buf)
	if err != nil {
		return nil, err
	}

	return buf[:n], nil
}
