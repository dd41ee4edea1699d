// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package celldex

import (
	"fmt"
	"strings"
)

// Naming maps a day and a recording code to a file name.
type Naming struct {
	Width int    // Codes are zero padded to this many digits
	Ext   string // Extension including the dot
}

// FileName joins the day and the padded code. Spreadsheet exports often
// turn codes into decimals, so anything after a '.' is dropped.
//
//	Naming{Width: 3, Ext: ".edf"}.FileName("24n11", "3.0") == "24n11003.edf"
func (n Naming) FileName(day, code string) (string, error) {
	code, _, _ = strings.Cut(strings.TrimSpace(code), ".")
	if code == "" {
		return "", fmt.Errorf("%w: empty recording code", ErrMalformedIndex)
	}
	if strings.ContainsAny(code, `/\`) || strings.ContainsAny(day, `/\`) {
		return "", fmt.Errorf("%w: recording %s%s contains a path separator", ErrMalformedIndex, day, code)
	}
	if pad := n.Width - len(code); pad > 0 {
		code = strings.Repeat("0", pad) + code
	}
	return day + code + n.Ext, nil
}
